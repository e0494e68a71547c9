package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

const sniffLen = 512

// UploadHandler stores images posted as multipart forms
type UploadHandler struct {
	store    storage.Store
	maxBytes int64
}

// NewUploadHandler creates a new upload handler accepting files up to maxBytes
func NewUploadHandler(store storage.Store, maxBytes int64) *UploadHandler {
	return &UploadHandler{store: store, maxBytes: maxBytes}
}

// Upload handles POST /api/upload with the file in the "image" field
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file.
	limit := h.maxBytes + sniffLen*2
	if r.ContentLength > limit {
		respondError(w, "Image is too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "Image is too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		respondError(w, "Image is too large", http.StatusRequestEntityTooLarge)
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		respondError(w, "Failed to read image", http.StatusBadRequest)
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, "Only image files are allowed", http.StatusBadRequest)
		return
	}

	key := storage.NewKey(header.Filename, contentType)
	body := io.MultiReader(bytes.NewReader(head), file)

	url, err := h.store.Save(r.Context(), key, contentType, body, header.Size)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to store upload")
		respondError(w, "Failed to upload image", http.StatusInternalServerError)
		return
	}

	log.Info().
		Int64("user_id", middleware.GetUserID(r.Context())).
		Str("key", key).
		Int64("size", header.Size).
		Msg("Image uploaded")

	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}
