package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rammm2005/api-3des/internal/api/middleware"
	"github.com/rammm2005/api-3des/internal/metrics"
	"github.com/rammm2005/api-3des/internal/models"
)

// UploadImageRequest is the body for upload-image.
type UploadImageRequest struct {
	Base64 string `json:"base64"`
}

// ImageEntry is one element of the chat/images listing.
type ImageEntry struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	MIME      string `json:"mime"`
	Timestamp string `json:"timestamp"`
}

// UploadImage validates, encrypts and persists an image. The payload's type
// is sniffed from its bytes; anything outside the image family is rejected
// before a single byte is written.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	sender := middleware.GetEmailFromContext(r.Context())
	if sender == "" {
		h.Fail(w, http.StatusUnauthorized, "Unauthorized: Email missing")
		return
	}

	var req UploadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Base64)
	if err != nil || len(payload) == 0 {
		h.Fail(w, http.StatusBadRequest, "invalid base64 payload")
		return
	}

	mime := mimetype.Detect(payload).String()
	if !strings.HasPrefix(mime, "image/") {
		h.Fail(w, http.StatusBadRequest, "Invalid image type")
		return
	}

	ciphertext, err := h.codec.EncryptBytes(payload)
	if err != nil {
		h.Fail(w, http.StatusInternalServerError, "encryption failed")
		return
	}

	img := &models.Image{
		Sender:     sender,
		Ciphertext: ciphertext,
		MIME:       mime,
	}
	if err := h.store.AppendImage(r.Context(), img); err != nil {
		h.Fail(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	metrics.ImagesUploaded.Inc()

	h.hub.NotifyNewMessage()

	h.JSON(w, http.StatusOK, map[string]any{"success": true, "id": img.ID.String()})
}

// FetchImage decrypts a stored image and serves the raw bytes with the MIME
// type sniffed at upload time.
func (h *Handler) FetchImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Fail(w, http.StatusBadRequest, "invalid image ID format")
		return
	}

	img, err := h.store.GetImage(r.Context(), id)
	if err != nil {
		h.Fail(w, http.StatusInternalServerError, "database error")
		return
	}
	if img == nil {
		h.Fail(w, http.StatusNotFound, "Image not found")
		return
	}

	plaintext, err := h.codec.DecryptBytes(img.Ciphertext)
	if err != nil {
		h.FailErr(w, http.StatusInternalServerError, "Failed to decrypt", err)
		return
	}

	w.Header().Set("Content-Type", img.MIME)
	w.WriteHeader(http.StatusOK)
	w.Write(plaintext)
}

// ListImages returns image metadata, timestamp ascending, without payloads.
// Clients fetch individual images by id.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.store.ListImages(r.Context())
	if err != nil {
		h.Fail(w, http.StatusInternalServerError, "Failed to load images")
		return
	}

	entries := make([]ImageEntry, len(images))
	for i, img := range images {
		entries[i] = ImageEntry{
			ID:        img.ID.String(),
			Sender:    img.Sender,
			MIME:      img.MIME,
			Timestamp: img.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	h.JSON(w, http.StatusOK, entries)
}
