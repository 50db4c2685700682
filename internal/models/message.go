package models

import "time"

// Message is an immutable chat log entry. The body is stored as ciphertext;
// clients decrypt on demand via the decrypt endpoint.
type Message struct {
	ID                string    `json:"id"` // ULID
	Sender            string    `json:"sender"`
	Ciphertext        string    `json:"message"` // base64, des-ede3-cbc
	EncryptDurationMs float64   `json:"encryptDurationMs"`
	Timestamp         time.Time `json:"timestamp"`
}
