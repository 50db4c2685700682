package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rammm2005/api-3des/internal/api"
	"github.com/rammm2005/api-3des/internal/crypto"
	"github.com/rammm2005/api-3des/internal/handlers"
	"github.com/rammm2005/api-3des/internal/hub"
	"github.com/rammm2005/api-3des/internal/store"
)

// capturingMailer records issued codes instead of sending mail.
type capturingMailer struct {
	mu    sync.Mutex
	codes map[string]string // email -> last code
}

func (m *capturingMailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[to] = code
	return nil
}

func (m *capturingMailer) lastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type testEnv struct {
	server *httptest.Server
	store  store.DataStore
	mailer *capturingMailer
	codec  *crypto.TripleDESCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvTTL(t, 0)
}

func newTestEnvTTL(t *testing.T, otpTTL time.Duration) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ds, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	codec, err := crypto.NewTripleDESCodec([]byte("123456789012345678901234"), []byte("12345678"))
	require.NoError(t, err)

	logger := zerolog.Nop()
	liveHub := hub.New(logger)
	go liveHub.Run(ctx)

	mailer := &capturingMailer{}
	h := handlers.NewHandler(ds, nil, codec, mailer, liveHub, otpTTL)
	router := api.NewRouter(logger, h, liveHub, nil, []string{"*"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, store: ds, mailer: mailer, codec: codec}
}

func (e *testEnv) post(t *testing.T, path string, body map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestRegisterIdempotent(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		resp, body := env.post(t, "/register", map[string]string{"email": "a@x.com"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, true, body["success"])
	}
}

func TestRegisterRejectsBadEmail(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/register", map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestOTPInvalidatesPrevious(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/request-otp", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := env.mailer.lastCode("a@x.com")
	require.Len(t, first, 6)

	resp, _ = env.post(t, "/request-otp", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := env.mailer.lastCode("a@x.com")

	// The first-issued code must no longer verify.
	if first != second {
		resp, _ = env.post(t, "/verify-otp", map[string]string{"email": "a@x.com", "otp": first})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, _ = env.post(t, "/verify-otp", map[string]string{"email": "a@x.com", "otp": second})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyOTPConsumesCode(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/request-otp", map[string]string{"email": "a@x.com"})
	code := env.mailer.lastCode("a@x.com")

	resp, _ := env.post(t, "/verify-otp", map[string]string{"email": "a@x.com", "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Second attempt with the same code fails.
	resp, body := env.post(t, "/verify-otp", map[string]string{"email": "a@x.com", "otp": code})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid OTP", body["message"])
}

func TestVerifyOTPRejectsExpiredCode(t *testing.T) {
	env := newTestEnvTTL(t, 5*time.Minute)

	// Back-dated beyond the TTL: must no longer verify.
	err := env.store.ReplaceOTP(context.Background(), "a@x.com", "123456", time.Now().UTC().Add(-10*time.Minute))
	require.NoError(t, err)

	resp, body := env.post(t, "/verify-otp", map[string]string{"email": "a@x.com", "otp": "123456"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid OTP", body["message"])

	// A fresh code within the TTL still verifies.
	err = env.store.ReplaceOTP(context.Background(), "a@x.com", "654321", time.Now().UTC())
	require.NoError(t, err)

	resp, _ = env.post(t, "/verify-otp", map[string]string{"email": "a@x.com", "otp": "654321"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyOTPUpsertsUnregisteredUser(t *testing.T) {
	env := newTestEnv(t)

	// Never called /register.
	env.post(t, "/request-otp", map[string]string{"email": "new@x.com"})
	code := env.mailer.lastCode("new@x.com")

	resp, _ := env.post(t, "/verify-otp", map[string]string{"email": "new@x.com", "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := env.store.GetUser(context.Background(), "new@x.com")
	require.NoError(t, err)
	require.NotNil(t, user)
}

func TestUnauthenticatedRequestsRejectedWithoutSideEffects(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/chat/send", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Unauthorized: Email missing", body["message"])

	resp, _ = env.get(t, "/chat/all")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	messages, err := env.store.ListMessages(context.Background())
	require.NoError(t, err)
	require.Empty(t, messages, "a rejected request must not mutate the store")
}

func TestSendListDecryptRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	// Full flow: register, OTP, verify, send, list, decrypt.
	resp, _ := env.post(t, "/register", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.post(t, "/request-otp", map[string]string{"email": "a@x.com"})
	code := env.mailer.lastCode("a@x.com")

	resp, _ = env.post(t, "/verify-otp", map[string]string{"email": "a@x.com", "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.post(t, "/chat/send", map[string]string{"email": "a@x.com", "message": "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Contains(t, body, "encryptDurationMs")

	resp, data := env.get(t, "/chat/all?email=a@x.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []handlers.ChatEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "a@x.com", entries[0].Sender)
	require.Equal(t, "text", entries[0].Type)
	require.NotEqual(t, "hello", entries[0].Message, "stored body must be ciphertext")

	resp, body = env.post(t, "/chat/decrypt", map[string]string{"email": "a@x.com", "message": entries[0].Message})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", body["decrypted"])
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/chat/send", map[string]string{"email": "a@x.com", "message": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing message", body["message"])
}

func TestDecryptMalformedCiphertext(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/chat/decrypt", map[string]string{"email": "a@x.com", "message": "corrupted!!!"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "Failed to decrypt", body["message"])
	require.Contains(t, body, "error")
}

// pngPayload is a tiny valid PNG header, enough for magic-number sniffing.
func pngPayload() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01}
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)

	payload := base64.StdEncoding.EncodeToString([]byte("just some text, definitely not an image"))
	resp, body := env.post(t, "/upload-image", map[string]string{"email": "a@x.com", "base64": payload})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid image type", body["message"])

	images, err := env.store.ListImages(context.Background())
	require.NoError(t, err)
	require.Empty(t, images, "a rejected upload must write nothing")
}

func TestUploadAndFetchImage(t *testing.T) {
	env := newTestEnv(t)

	raw := pngPayload()
	payload := base64.StdEncoding.EncodeToString(raw)

	resp, body := env.post(t, "/upload-image", map[string]string{"email": "a@x.com", "base64": payload})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	id, ok := body["id"].(string)
	require.True(t, ok)

	resp, data := env.get(t, fmt.Sprintf("/image/%s?email=a@x.com", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.Equal(t, raw, data)
}

func TestFetchImageNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/chat/decrypt", map[string]string{"email": "a@x.com", "message": "", "type": "image"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = body

	resp, _ = env.get(t, "/image/123e4567-e89b-12d3-a456-426614174000?email=a@x.com")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDecryptImageSniffsMIME(t *testing.T) {
	env := newTestEnv(t)

	raw := pngPayload()
	ciphertext, err := env.codec.EncryptBytes(raw)
	require.NoError(t, err)

	resp, body := env.post(t, "/chat/decrypt", map[string]string{
		"email":   "a@x.com",
		"message": base64.StdEncoding.EncodeToString(ciphertext),
		"type":    "image",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", body["mime"])

	decrypted, err := base64.StdEncoding.DecodeString(body["decrypted"].(string))
	require.NoError(t, err)
	require.Equal(t, raw, decrypted)
}

func TestListChatOrderedByTimestamp(t *testing.T) {
	env := newTestEnv(t)

	for _, msg := range []string{"first", "second", "third"} {
		resp, _ := env.post(t, "/chat/send", map[string]string{"email": "a@x.com", "message": msg})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		time.Sleep(5 * time.Millisecond)
	}

	resp, data := env.get(t, "/chat/all?email=a@x.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []handlers.ChatEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		require.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health handlers.HealthResponse
	require.NoError(t, json.Unmarshal(data, &health))
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "pass", health.Checks["database"].Status)
}
