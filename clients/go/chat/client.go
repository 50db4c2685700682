// Package chat provides a client for the encrypted chat API.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a chat API client. After VerifyOTP succeeds, Email is attached
// to every request as the session identity.
type Client struct {
	BaseURL    string
	Email      string
	HTTPClient *http.Client
}

// NewClient creates a new chat client for the given server and identity.
func NewClient(baseURL, email string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Email:      email,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthResponse acknowledges an auth-flow call.
type AuthResponse struct {
	Success bool `json:"success"`
	User    struct {
		Email string `json:"email"`
	} `json:"user"`
}

// SendResponse acknowledges a sent message.
type SendResponse struct {
	Success           bool    `json:"success"`
	EncryptDurationMs float64 `json:"encryptDurationMs"`
}

// DecryptResponse carries a decrypted payload.
type DecryptResponse struct {
	Success   bool    `json:"success"`
	Decrypted string  `json:"decrypted"`
	MIME      *string `json:"mime"`
}

// ChatEntry is one message of the global log.
type ChatEntry struct {
	Sender            string    `json:"sender"`
	Message           string    `json:"message"`
	Timestamp         time.Time `json:"timestamp"`
	EncryptDurationMs float64   `json:"encryptDurationMs"`
	Type              string    `json:"type"`
}

type apiError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Register creates the identity on the server. Idempotent.
func (c *Client) Register() (*AuthResponse, error) {
	var resp AuthResponse
	err := c.post("/register", map[string]string{"email": c.Email}, &resp)
	return &resp, err
}

// RequestOTP asks the server to mail a fresh code to the client's address.
func (c *Client) RequestOTP() (*AuthResponse, error) {
	var resp AuthResponse
	err := c.post("/request-otp", map[string]string{"email": c.Email}, &resp)
	return &resp, err
}

// VerifyOTP submits a received code.
func (c *Client) VerifyOTP(code string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.post("/verify-otp", map[string]string{"email": c.Email, "otp": code}, &resp)
	return &resp, err
}

// Send posts a plaintext message; the server encrypts before persisting.
func (c *Client) Send(message string) (*SendResponse, error) {
	var resp SendResponse
	err := c.post("/chat/send", map[string]string{"email": c.Email, "message": message}, &resp)
	return &resp, err
}

// Decrypt asks the server to decrypt a ciphertext from the log.
// kind is "" for text or "image" for binary payloads.
func (c *Client) Decrypt(ciphertext, kind string) (*DecryptResponse, error) {
	body := map[string]string{"email": c.Email, "message": ciphertext}
	if kind != "" {
		body["type"] = kind
	}
	var resp DecryptResponse
	err := c.post("/chat/decrypt", body, &resp)
	return &resp, err
}

// History fetches the full chat log, oldest first.
func (c *Client) History() ([]ChatEntry, error) {
	endpoint := fmt.Sprintf("%s/chat/all?email=%s", c.BaseURL, url.QueryEscape(c.Email))
	httpResp, err := c.HTTPClient.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, decodeError(httpResp.StatusCode, data)
	}

	var entries []ChatEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UploadImage posts a base64-encoded image payload.
func (c *Client) UploadImage(base64Payload string) error {
	var resp struct {
		Success bool `json:"success"`
	}
	return c.post("/upload-image", map[string]string{"email": c.Email, "base64": base64Payload}, &resp)
}

func (c *Client) post(path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpResp, err := c.HTTPClient.Post(c.BaseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return err
	}
	if httpResp.StatusCode != http.StatusOK {
		return decodeError(httpResp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}

func decodeError(status int, data []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("server returned %d: %s", status, apiErr.Message)
	}
	return fmt.Errorf("server returned %d", status)
}
