package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/internal/auth"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

func startHub(t *testing.T, verifier *auth.Verifier) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(nil)
	go hub.Run(ctx)
	srv := httptest.NewServer(hub.Handler(verifier))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub, srv := startHub(t, auth.NewVerifier("", ""))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), shared.NewEvent(shared.EventOrderCreated, "o-1", map[string]any{"total": 120.0}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt shared.Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	require.Equal(t, shared.EventOrderCreated, evt.Type)
	require.Equal(t, "o-1", evt.EntityID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubRejectsMissingToken(t *testing.T) {
	_, srv := startHub(t, auth.NewVerifier("secret", ""))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubAcceptsQueryToken(t *testing.T) {
	hub, srv := startHub(t, auth.NewVerifier("secret", ""))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "owner",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
}

func TestPublishDoesNotBlockWithoutRunLoop(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize+10; i++ {
			hub.Publish(context.Background(), shared.NewEvent(shared.EventStockChanged, "p", nil))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}
