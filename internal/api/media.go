package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"messaging-core/internal/media"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	Storage *media.Storage
}

func NewMediaHandler(storage *media.Storage) *MediaHandler {
	return &MediaHandler{Storage: storage}
}

// UploadMedia stores a binary durably and returns its stable URL, e.g. for
// template header media.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	url, err := h.Storage.Store(data, ext)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
