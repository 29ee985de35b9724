package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"rentops-backend/internal/logger"
	"rentops-backend/internal/storage"

	"github.com/gorilla/mux"
)

// ImageUploadHandler serves the presigned URLs issued by the local mock
// photo store.
type ImageUploadHandler struct {
	files storage.LocalFileStore
}

func NewImageUploadHandler(files storage.LocalFileStore) *ImageUploadHandler {
	return &ImageUploadHandler{files: files}
}

// HandleMockUpload handles PUT requests to mock presigned upload URLs
func (h *ImageUploadHandler) HandleMockUpload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeMessage(w, http.StatusBadRequest, "missing key parameter")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeMessage(w, http.StatusBadRequest, "invalid content type")
		return
	}

	body := http.MaxBytesReader(w, r.Body, 10<<20)
	defer body.Close()
	if err := h.files.SaveFile(key, body); err != nil {
		logger.Error("Failed to save uploaded photo", "key", key, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	// mimic the S3 response
	w.Header().Set("ETag", `"mock-etag-success"`)
	w.WriteHeader(http.StatusOK)
}

// HandleMockDownload handles GET requests to mock presigned download URLs
func (h *ImageUploadHandler) HandleMockDownload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeMessage(w, http.StatusBadRequest, "missing key parameter")
		return
	}

	file, err := h.files.ReadFile(key)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "file not found")
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".gif":
		contentType = "image/gif"
	case ".webp":
		contentType = "image/webp"
	case ".heic":
		contentType = "image/heic"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Photo download interrupted", "key", key, "error", err)
	}
}

// RegisterMockStorageRoutes registers the mock storage endpoints on the
// /api/v1 subrouter.
func RegisterMockStorageRoutes(router *mux.Router, files storage.LocalFileStore) {
	handler := NewImageUploadHandler(files)
	router.HandleFunc("/upload/{token}", handler.HandleMockUpload).Methods(http.MethodPut).Name("UploadPhoto")
	router.HandleFunc("/download/{hash}", handler.HandleMockDownload).Methods(http.MethodGet).Name("DownloadPhoto")
}
