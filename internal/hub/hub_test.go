package hub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rammm2005/api-3des/internal/hub"
)

func newLiveHub(t *testing.T) (*hub.Hub, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.New(zerolog.Nop())
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)

	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNotifyNewMessageReachesAllClients(t *testing.T) {
	h, url := newLiveHub(t)

	first := dial(t, url)
	second := dial(t, url)

	// Registration goes through the run loop; give it a beat.
	time.Sleep(100 * time.Millisecond)

	h.NotifyNewMessage()

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.JSONEq(t, `{"event":"newMessage"}`, string(data))
	}
}

func TestNotifyWithoutClientsDoesNotBlock(t *testing.T) {
	h, _ := newLiveHub(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.NotifyNewMessage()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyNewMessage blocked with no listeners")
	}
}

func TestStoppedHubReleasesNewConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.New(zerolog.Nop())
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	cancel()
	time.Sleep(100 * time.Millisecond)

	// A connection arriving after shutdown must be closed, not parked on the
	// register channel forever.
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err, "stopped hub must close incoming connections")
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	h, url := newLiveHub(t)

	conn := dial(t, url)
	survivor := dial(t, url)
	time.Sleep(100 * time.Millisecond)

	conn.Close()
	time.Sleep(100 * time.Millisecond)

	// The surviving client still receives notifications.
	h.NotifyNewMessage()
	survivor.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := survivor.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"newMessage"}`, string(data))
}
