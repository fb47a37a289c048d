package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ririnrahma1306/campusboard/pkg/response"
	"github.com/ririnrahma1306/campusboard/pkg/storage"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

// MediaHandler serves stored profile photos and announcement images.
type MediaHandler struct {
	storage *storage.LocalStorage
}

// NewMediaHandler creates a new handler.
func NewMediaHandler(store *storage.LocalStorage) *MediaHandler {
	return &MediaHandler{storage: store}
}

var mediaContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Serve godoc
// @Summary Serve an uploaded media file
// @Tags Media
// @Produce octet-stream
// @Param path path string true "Relative media path"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /media/{path} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	relPath := strings.TrimPrefix(c.Param("path"), "/")
	if relPath == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}

	f, err := h.storage.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}

	contentType, ok := mediaContentTypes[strings.ToLower(path.Ext(relPath))]
	if !ok {
		contentType = "application/octet-stream"
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, f, nil)
}
