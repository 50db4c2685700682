package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rammm2005/api-3des/internal/api/middleware"
	"github.com/rammm2005/api-3des/internal/crypto"
	"github.com/rammm2005/api-3des/internal/metrics"
	"github.com/rammm2005/api-3des/internal/models"
)

// SendMessageRequest is the body for chat/send.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse acknowledges a persisted message.
type SendMessageResponse struct {
	Success           bool    `json:"success"`
	EncryptDurationMs float64 `json:"encryptDurationMs"`
}

// DecryptRequest is the body for chat/decrypt.
type DecryptRequest struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"` // "image" for binary payloads
}

// DecryptResponse carries a decrypted payload back to the caller.
type DecryptResponse struct {
	Success   bool    `json:"success"`
	Decrypted string  `json:"decrypted"`
	MIME      *string `json:"mime"`
}

// ChatEntry is one element of the chat/all listing.
type ChatEntry struct {
	Sender            string    `json:"sender"`
	Message           string    `json:"message"` // ciphertext, base64
	Timestamp         time.Time `json:"timestamp"`
	EncryptDurationMs float64   `json:"encryptDurationMs"`
	Type              string    `json:"type"`
}

// SendMessage encrypts, persists and broadcasts a text message. The hub is
// notified only after the append succeeded, so listeners reacting to the
// event always observe the new record.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sender := middleware.GetEmailFromContext(r.Context())
	if sender == "" {
		h.Fail(w, http.StatusUnauthorized, "Unauthorized: Email missing")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		h.Fail(w, http.StatusBadRequest, "Missing message")
		return
	}

	start := time.Now()
	ciphertext, err := h.codec.EncryptText(req.Message)
	if err != nil {
		h.Fail(w, http.StatusInternalServerError, "encryption failed")
		return
	}
	elapsed := time.Since(start)
	metrics.EncryptDuration.Observe(elapsed.Seconds())

	msg := &models.Message{
		Sender:            sender,
		Ciphertext:        ciphertext,
		EncryptDurationMs: float64(elapsed.Microseconds()) / 1000.0,
	}

	if err := h.store.AppendMessage(r.Context(), msg); err != nil {
		h.Fail(w, http.StatusInternalServerError, "failed to store message")
		return
	}
	metrics.MessagesSent.Inc()

	h.hub.NotifyNewMessage()

	h.JSON(w, http.StatusOK, SendMessageResponse{
		Success:           true,
		EncryptDurationMs: msg.EncryptDurationMs,
	})
}

// DecryptMessage decrypts a ciphertext for display. For image payloads the
// MIME type is recovered from the decrypted bytes' magic numbers, never from
// a client-supplied label.
func (h *Handler) DecryptMessage(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		h.Fail(w, http.StatusBadRequest, "Missing encrypted message")
		return
	}

	if req.Type == "image" {
		ciphertext, err := base64.StdEncoding.DecodeString(req.Message)
		if err != nil {
			h.FailErr(w, http.StatusInternalServerError, "Failed to decrypt", crypto.ErrDecode)
			return
		}
		plaintext, err := h.codec.DecryptBytes(ciphertext)
		if err != nil {
			h.FailErr(w, http.StatusInternalServerError, "Failed to decrypt", err)
			return
		}

		mime := mimetype.Detect(plaintext).String()
		h.JSON(w, http.StatusOK, DecryptResponse{
			Success:   true,
			Decrypted: base64.StdEncoding.EncodeToString(plaintext),
			MIME:      &mime,
		})
		return
	}

	plaintext, err := h.codec.DecryptText(req.Message)
	if err != nil {
		h.FailErr(w, http.StatusInternalServerError, "Failed to decrypt", err)
		return
	}
	h.JSON(w, http.StatusOK, DecryptResponse{Success: true, Decrypted: plaintext, MIME: nil})
}

// ListChat returns the full message log, timestamp ascending. Every
// authenticated caller sees the entire global history; bodies stay
// encrypted until the client asks to decrypt them.
func (h *Handler) ListChat(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.ListMessages(r.Context())
	if err != nil {
		h.Fail(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	entries := make([]ChatEntry, len(messages))
	for i, msg := range messages {
		entries[i] = ChatEntry{
			Sender:            msg.Sender,
			Message:           msg.Ciphertext,
			Timestamp:         msg.Timestamp,
			EncryptDurationMs: msg.EncryptDurationMs,
			Type:              "text",
		}
	}

	h.JSON(w, http.StatusOK, entries)
}
