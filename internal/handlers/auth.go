package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rammm2005/api-3des/internal/crypto"
	"github.com/rammm2005/api-3des/internal/metrics"
)

// RegisterRequest is the body for register and request-otp.
type RegisterRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest is the body for verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// AuthResponse acknowledges an auth-flow operation.
type AuthResponse struct {
	Success bool        `json:"success"`
	User    userPayload `json:"user"`
}

// Register creates the identity if absent. Registering twice is a no-op.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !isValidEmail(req.Email) {
		h.Fail(w, http.StatusBadRequest, "invalid email format")
		return
	}

	if err := h.store.CreateUser(r.Context(), req.Email); err != nil {
		h.Fail(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusOK, AuthResponse{Success: true, User: userPayload{Email: req.Email}})
}

// RequestOTP issues a fresh 6-digit code, replacing any earlier one for the
// email, and hands it to the mail side-channel. A failed send is surfaced to
// the caller but never rolls back the stored record: the code stays valid
// and the user may simply request another.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !isValidEmail(req.Email) {
		h.Fail(w, http.StatusBadRequest, "invalid email format")
		return
	}

	code, err := crypto.GenerateOTP()
	if err != nil {
		h.Fail(w, http.StatusInternalServerError, "failed to generate OTP")
		return
	}

	if err := h.store.ReplaceOTP(r.Context(), req.Email, code, time.Now().UTC()); err != nil {
		h.Fail(w, http.StatusInternalServerError, "failed to store OTP")
		return
	}
	metrics.OTPsIssued.Inc()

	if err := h.mailer.SendOTP(r.Context(), req.Email, code); err != nil {
		h.FailErr(w, http.StatusBadGateway, "Failed to send OTP email", err)
		return
	}

	h.JSON(w, http.StatusOK, AuthResponse{Success: true, User: userPayload{Email: req.Email}})
}

// VerifyOTP consumes a code. On a match the identity is upserted (covering
// callers who never explicitly registered) and every record for the email is
// deleted, so a code verifies exactly once.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.OTP == "" {
		h.Fail(w, http.StatusBadRequest, "email and otp are required")
		return
	}

	record, err := h.store.GetOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.Fail(w, http.StatusInternalServerError, "database error")
		return
	}
	if record == nil || h.expired(record.CreatedAt) {
		metrics.OTPsVerified.WithLabelValues("invalid").Inc()
		h.Fail(w, http.StatusUnauthorized, "Invalid OTP")
		return
	}

	if err := h.store.UpsertUser(r.Context(), req.Email); err != nil {
		h.Fail(w, http.StatusInternalServerError, "database error")
		return
	}
	if err := h.store.DeleteOTPs(r.Context(), req.Email); err != nil {
		h.Fail(w, http.StatusInternalServerError, "database error")
		return
	}

	metrics.OTPsVerified.WithLabelValues("ok").Inc()
	h.JSON(w, http.StatusOK, AuthResponse{Success: true, User: userPayload{Email: req.Email}})
}

// expired applies the pluggable TTL check. Disabled (zero TTL) by default.
func (h *Handler) expired(createdAt time.Time) bool {
	return h.otpTTL > 0 && time.Since(createdAt) > h.otpTTL
}
