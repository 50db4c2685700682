package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rammm2005/api-3des/internal/api/middleware"
)

func guardedEcho(t *testing.T) http.Handler {
	t.Helper()
	return middleware.RequireEmail(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := middleware.GetEmailFromContext(r.Context())
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write([]byte(email + "|" + string(body)))
	}))
}

func TestRequireEmailFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/chat/all?email=a@x.com", nil)
	rec := httptest.NewRecorder()

	guardedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com|", rec.Body.String())
}

func TestRequireEmailFromBody(t *testing.T) {
	payload := `{"email":"a@x.com","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	guardedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// The body must be readable again downstream.
	assert.Equal(t, "a@x.com|"+payload, rec.Body.String())
}

func TestRequireEmailMissing(t *testing.T) {
	cases := []struct {
		name string
		req  *http.Request
	}{
		{"get without query", httptest.NewRequest(http.MethodGet, "/chat/all", nil)},
		{"post without email", httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(`{"message":"hi"}`))},
		{"post malformed body", httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(`{{{`))},
		{"post empty body", httptest.NewRequest(http.MethodPost, "/chat/send", nil)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			guardedEcho(t).ServeHTTP(rec, tc.req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"Unauthorized: Email missing"}`, rec.Body.String())
		})
	}
}
