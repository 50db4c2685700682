package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/rammm2005/api-3des/internal/crypto"
	"github.com/rammm2005/api-3des/internal/hub"
	"github.com/rammm2005/api-3des/internal/mail"
	"github.com/rammm2005/api-3des/internal/store"
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store  store.DataStore
	redis  *store.RedisStore
	codec  *crypto.TripleDESCodec
	mailer mail.Sender
	hub    *hub.Hub

	// otpTTL > 0 enables the pluggable expiry check on verification.
	// Zero matches the historical behavior: codes never expire.
	otpTTL time.Duration
}

// NewHandler creates a new Handler with the given collaborators.
func NewHandler(ds store.DataStore, redis *store.RedisStore, codec *crypto.TripleDESCodec, mailer mail.Sender, h *hub.Hub, otpTTL time.Duration) *Handler {
	return &Handler{
		store:  ds,
		redis:  redis,
		codec:  codec,
		mailer: mailer,
		hub:    h,
		otpTTL: otpTTL,
	}
}

// userPayload echoes the identity a request acted on.
type userPayload struct {
	Email string `json:"email"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Fail sends a structured failure payload.
func (h *Handler) Fail(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]any{"success": false, "message": message})
}

// FailErr sends a structured failure payload carrying the error detail.
func (h *Handler) FailErr(w http.ResponseWriter, status int, message string, err error) {
	h.JSON(w, status, map[string]any{"success": false, "message": message, "error": err.Error()})
}

// isValidEmail validates email addresses using the RFC 5322 pattern.
func isValidEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
