package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadClaims is what a signed download token asserts: the export
// job that produced the file, where the file lives under the export
// root, and when the link stops working.
type DownloadClaims struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner mints and checks HMAC-SHA256 download tokens.
// Tokens are self-contained, so the download route works without a
// session or database hit before the signature check.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner builds a signer. A non-positive ttl falls back
// to 24 hours.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Sign mints a token for the job's stored file. The token embeds the
// claims in clear text followed by their signature.
func (s *SignedURLSigner) Sign(jobID, path string) (string, DownloadClaims, error) {
	if jobID == "" || path == "" {
		return "", DownloadClaims{}, fmt.Errorf("jobID and path required")
	}
	if len(s.secret) == 0 {
		return "", DownloadClaims{}, fmt.Errorf("signing secret missing")
	}
	claims := DownloadClaims{
		JobID:     jobID,
		Path:      path,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	exp := strconv.FormatInt(claims.ExpiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(path))
	token := strings.Join([]string{jobID, exp, encodedPath, s.signature(jobID, exp, encodedPath)}, ".")
	return token, claims, nil
}

// Verify checks the token signature and returns its claims. Expiry is
// skipped when allowExpired is set so cleanup can still resolve stored
// paths from stale links.
func (s *SignedURLSigner) Verify(token string, allowExpired bool) (DownloadClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return DownloadClaims{}, fmt.Errorf("invalid token format")
	}
	jobID, exp, encodedPath, sig := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.signature(jobID, exp, encodedPath)), []byte(sig)) {
		return DownloadClaims{}, fmt.Errorf("invalid token signature")
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return DownloadClaims{}, fmt.Errorf("decode path: %w", err)
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return DownloadClaims{}, fmt.Errorf("invalid timestamp")
	}

	claims := DownloadClaims{JobID: jobID, Path: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && time.Now().After(claims.ExpiresAt) {
		return DownloadClaims{}, fmt.Errorf("token expired")
	}
	return claims, nil
}

func (s *SignedURLSigner) signature(jobID, exp, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", jobID, exp, encodedPath)
	return hex.EncodeToString(mac.Sum(nil))
}
