package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxUploadBytes caps a single product image.
const MaxUploadBytes int64 = 5 << 20

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// UploadProductImage handles POST /api/products/upload (admin).
// It saves the image under UploadDir and returns the public URL.
func (h *Handlers) UploadProductImage(c *gin.Context) {
	// 1. Get the file from the request; the body may carry a little form overhead on top
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, apperr.Validation("No file uploaded", err.Error()))
		return
	}
	if file.Size > MaxUploadBytes {
		h.respondError(c, apperr.Validation("File too large", fmt.Sprintf("maximum size is %d bytes", MaxUploadBytes)))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExtensions[ext] {
		h.respondError(c, apperr.Validation("Unsupported file type", "allowed: jpg, jpeg, png, webp, gif"))
		return
	}

	// 2. Create the upload directory if it doesn't exist
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		h.respondError(c, apperr.Internal("Failed to prepare upload directory", err))
		return
	}

	// 3. Generate a safe unique filename (uuid + extension)
	newFilename := uuid.NewString() + ext
	savePath := filepath.Join(h.UploadDir, newFilename)

	// 4. Save the file
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		h.respondError(c, apperr.Internal("Failed to save file", err))
		return
	}

	// 5. Return the public URL
	c.JSON(http.StatusCreated, gin.H{
		"url": fmt.Sprintf("%s/uploads/%s", strings.TrimRight(h.BaseURL, "/"), newFilename),
	})
}
