package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is an encrypted image record. Ciphertext holds the des-ede3-cbc
// encrypted payload; MIME is the type sniffed from the plaintext bytes at
// upload time, never a client-supplied label.
type Image struct {
	ID         uuid.UUID `json:"id"`
	Sender     string    `json:"sender"`
	Ciphertext []byte    `json:"-"`
	MIME       string    `json:"mime"`
	Timestamp  time.Time `json:"timestamp"`
}
