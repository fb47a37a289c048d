package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, claims, err := signer.Sign("job-1", "recaps/file.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, claims.ExpiresAt.IsZero())

	parsed, err := signer.Verify(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", parsed.JobID)
	require.Equal(t, "recaps/file.csv", parsed.Path)
	require.WithinDuration(t, claims.ExpiresAt, parsed.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("job-1", "recaps/file.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, err = signer.Verify(token, false)
	require.Error(t, err)

	claims, err := signer.Verify(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-1", claims.JobID)
	require.Equal(t, "recaps/file.csv", claims.Path)
}

func TestSignedURLSignerTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "recaps/file.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("another-secret", time.Hour)
	_, err = other.Verify(token, false)
	require.Error(t, err)
}
