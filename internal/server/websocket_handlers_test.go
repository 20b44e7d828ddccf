package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"arcade/internal/cache"
	"arcade/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestIssueWSTicket_NoRedis(t *testing.T) {
	srv := newTestServer(t, nil)
	token, _ := register(t, srv, "alice")

	status, raw := doRequest(t, srv, http.MethodPost, "/api/ws/ticket", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, codeServiceUnavailable, decode[models.ErrorResponse](t, raw).Code)
}

func TestIssueWSTicket(t *testing.T) {
	mr, rdb := newMiniredis(t)
	srv := newTestServer(t, rdb)
	token, id := register(t, srv, "alice")

	status, _ := doRequest(t, srv, http.MethodPost, "/api/ws/ticket", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := doRequest(t, srv, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	resp := decode[TicketResponse](t, raw)
	assert.NotEmpty(t, resp.Ticket)
	assert.Equal(t, 30, resp.ExpiresIn)

	key := cache.WSTicketKey(resp.Ticket)
	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, id.String(), stored)
	assert.Equal(t, cache.WSTicketTTL, mr.TTL(key))
}

func TestWSTicketRequired(t *testing.T) {
	mr, rdb := newMiniredis(t)
	srv := &Server{redis: rdb}

	app := fiber.New(fiber.Config{ErrorHandler: (&Server{}).ErrorHandler})
	app.Get("/ws", srv.WSTicketRequired(), func(c *fiber.Ctx) error {
		return c.SendString(currentUserID(c).String())
	})

	upgrade := func(ticket string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/ws?ticket="+url.QueryEscape(ticket), nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	userID := models.NewID()
	require.NoError(t, mr.Set(cache.WSTicketKey("ticket-1"), userID.String()))

	t.Run("valid ticket is consumed", func(t *testing.T) {
		resp := upgrade("ticket-1")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, mr.Exists(cache.WSTicketKey("ticket-1")), "ticket should be deleted on use")
	})

	t.Run("reused ticket is rejected", func(t *testing.T) {
		resp := upgrade("ticket-1")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing ticket is rejected", func(t *testing.T) {
		resp := upgrade("")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("plain request needs upgrade", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws?ticket=x", nil), -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	})
}

func TestFeedWebSocket_ReceivesPostEvents(t *testing.T) {
	_, rdb := newMiniredis(t)
	srv := newTestServer(t, rdb)
	token, _ := register(t, srv, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, srv.hub.StartWiring(ctx, srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := srv.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	status, raw := doRequest(t, srv, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	ticket := decode[TicketResponse](t, raw).Ticket

	u := url.URL{Scheme: "ws", Host: ln.Addr().String(), Path: "/api/ws/feed", RawQuery: "ticket=" + ticket}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return srv.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, raw = doRequest(t, srv, http.MethodPost, "/api/posts", token, fiber.Map{"content": "live!"})
	require.Equal(t, http.StatusOK, status, string(raw))
	postID := decode[map[string]any](t, raw)["id"].(string)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, models.EventPostCreated, event.Type)
	assert.Equal(t, postID, event.Payload["id"])
}
