package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/rammm2005/api-3des/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser inserts the identity if absent. Registering an existing email
// is a no-op.
func (s *PostgresStore) CreateUser(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (email) VALUES ($1)
		ON CONFLICT (email) DO NOTHING
	`, email)
	return err
}

// UpsertUser ensures the identity exists, creating it if the caller never
// explicitly registered.
func (s *PostgresStore) UpsertUser(ctx context.Context, email string) error {
	return s.CreateUser(ctx, email)
}

// GetUser retrieves an identity by email.
func (s *PostgresStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT email, created_at FROM users WHERE email = $1
	`, email).Scan(&user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ReplaceOTP installs a fresh code for the email, invalidating any previous
// one. The primary key on email makes the single-live-record invariant a
// database guarantee, not a read-then-write race.
func (s *PostgresStore) ReplaceOTP(ctx context.Context, email, code string, createdAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO otps (email, code, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET code = $2, created_at = $3
	`, email, code, createdAt)
	return err
}

// GetOTP retrieves the record matching exactly email and code.
func (s *PostgresStore) GetOTP(ctx context.Context, email, code string) (*models.OTP, error) {
	otp := &models.OTP{}
	err := s.pool.QueryRow(ctx, `
		SELECT email, code, created_at FROM otps WHERE email = $1 AND code = $2
	`, email, code).Scan(&otp.Email, &otp.Code, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return otp, nil
}

// DeleteOTPs removes every record for the email.
func (s *PostgresStore) DeleteOTPs(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM otps WHERE email = $1`, email)
	return err
}

// AppendMessage persists a new immutable chat record.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, sender, ciphertext, encrypt_duration_ms, ts)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.Sender, msg.Ciphertext, msg.EncryptDurationMs, msg.Timestamp)
	return err
}

// ListMessages returns the full chat log, oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender, ciphertext, encrypt_duration_ms, ts
		FROM messages
		ORDER BY ts ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Ciphertext, &msg.EncryptDurationMs, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendImage persists a new encrypted image record.
func (s *PostgresStore) AppendImage(ctx context.Context, img *models.Image) error {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	if img.Timestamp.IsZero() {
		img.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO images (id, sender, ciphertext, mime, ts)
		VALUES ($1, $2, $3, $4, $5)
	`, img.ID, img.Sender, img.Ciphertext, img.MIME, img.Timestamp)
	return err
}

// GetImage retrieves an image record, payload included.
func (s *PostgresStore) GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	img := &models.Image{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, sender, ciphertext, mime, ts FROM images WHERE id = $1
	`, id).Scan(&img.ID, &img.Sender, &img.Ciphertext, &img.MIME, &img.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return img, nil
}

// ListImages returns image metadata, oldest first, without payloads.
func (s *PostgresStore) ListImages(ctx context.Context) ([]models.Image, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender, mime, ts FROM images ORDER BY ts ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.Sender, &img.MIME, &img.Timestamp); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
