package models

import "time"

// OTP is a one-time passcode issued to an email address. At most one live
// record exists per email: requesting a new code replaces the previous one.
type OTP struct {
	Email     string    `json:"email"`
	Code      string    `json:"otp"`
	CreatedAt time.Time `json:"created_at"`
}
