package models

import "time"

// User is a registered chat identity, keyed by email.
type User struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
