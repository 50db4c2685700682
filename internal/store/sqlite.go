package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/rammm2005/api-3des/internal/models"
)

// SQLiteStore handles SQLite database operations. It backs single-node
// deployments without a PostgreSQL instance, and is the store the tests
// run against.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chat.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chat.db"
	}

	// In-memory databases need no directory
	if !strings.Contains(dbPath, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS otps (
		email TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		ciphertext TEXT NOT NULL,
		encrypt_duration_ms REAL NOT NULL DEFAULT 0,
		ts DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		ciphertext BLOB NOT NULL,
		mime TEXT NOT NULL,
		ts DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
	CREATE INDEX IF NOT EXISTS idx_images_ts ON images(ts);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts the identity if absent.
func (s *SQLiteStore) CreateUser(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, created_at) VALUES (?, ?)
		ON CONFLICT (email) DO NOTHING
	`, email, time.Now().UTC())
	return err
}

// UpsertUser ensures the identity exists.
func (s *SQLiteStore) UpsertUser(ctx context.Context, email string) error {
	return s.CreateUser(ctx, email)
}

// GetUser retrieves an identity by email.
func (s *SQLiteStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT email, created_at FROM users WHERE email = ?
	`, email).Scan(&user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ReplaceOTP installs a fresh code, invalidating any previous one for the
// email.
func (s *SQLiteStore) ReplaceOTP(ctx context.Context, email, code string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otps (email, code, created_at) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET code = excluded.code, created_at = excluded.created_at
	`, email, code, createdAt)
	return err
}

// GetOTP retrieves the record matching exactly email and code.
func (s *SQLiteStore) GetOTP(ctx context.Context, email, code string) (*models.OTP, error) {
	otp := &models.OTP{}
	err := s.db.QueryRowContext(ctx, `
		SELECT email, code, created_at FROM otps WHERE email = ? AND code = ?
	`, email, code).Scan(&otp.Email, &otp.Code, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return otp, nil
}

// DeleteOTPs removes every record for the email.
func (s *SQLiteStore) DeleteOTPs(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM otps WHERE email = ?`, email)
	return err
}

// AppendMessage persists a new immutable chat record.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender, ciphertext, encrypt_duration_ms, ts)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.Sender, msg.Ciphertext, msg.EncryptDurationMs, msg.Timestamp)
	return err
}

// ListMessages returns the full chat log, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStore) AppendImage(ctx context.Context, img *models.Image) error {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	if img.Timestamp.IsZero() {
		img.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, sender, ciphertext, mime, ts)
		VALUES (?, ?, ?, ?, ?)
	`, img.ID.String(), img.Sender, img.Ciphertext, img.MIME, img.Timestamp)
	return err
}

// GetImage retrieves an image record, payload included.
func (s *SQLiteStore) GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	img := &models.Image{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sender, ciphertext, mime, ts FROM images WHERE id = ?
	`, id.String()).Scan(&idStr, &img.Sender, &img.Ciphertext, &img.MIME, &img.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	img.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ListImages returns image metadata, oldest first, without payloads.
func (s *SQLiteStore) ListImages(ctx context.Context) ([]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, mime, ts FROM images ORDER BY ts ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var img models.Image
		var idStr string
		if err := rows.Scan(&idStr, &img.Sender, &img.MIME, &img.Timestamp); err != nil {
			return nil, err
		}
		if img.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
