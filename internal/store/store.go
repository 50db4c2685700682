package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rammm2005/api-3des/internal/models"
)

// DataStore is the persistence boundary for identities, one-time passcodes
// and the chat log. Both PostgresStore and SQLiteStore implement it.
//
// Messages and images are append-only: nothing here mutates or deletes an
// existing record. OTP rows are the exception, replaced on issue and consumed
// on verification.
type DataStore interface {
	Close()
	Ping(ctx context.Context) error

	// Lookups return (nil, nil) when the subject does not exist.

	// Users
	CreateUser(ctx context.Context, email string) error // idempotent
	UpsertUser(ctx context.Context, email string) error
	GetUser(ctx context.Context, email string) (*models.User, error)

	// OTPs. ReplaceOTP drops any prior record for the email before inserting,
	// so at most one live code exists per address at any instant.
	ReplaceOTP(ctx context.Context, email, code string, createdAt time.Time) error
	GetOTP(ctx context.Context, email, code string) (*models.OTP, error)
	DeleteOTPs(ctx context.Context, email string) error

	// Messages. AppendMessage assigns the ID and timestamp when unset.
	// ListMessages returns the full log ordered by timestamp ascending.
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context) ([]models.Message, error)

	// Images. ListImages returns metadata only, without ciphertext payloads.
	AppendImage(ctx context.Context, img *models.Image) error
	GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error)
	ListImages(ctx context.Context) ([]models.Image, error)
}
