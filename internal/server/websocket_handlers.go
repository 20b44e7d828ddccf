package server

import (
	"context"
	"errors"
	"strings"

	"arcade/internal/cache"
	"arcade/internal/middleware"
	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TicketResponse is returned by ticket issuance.
type TicketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expiresIn"`
}

// IssueWSTicket handles POST /ws/ticket. Browsers cannot set headers on a
// WebSocket handshake, so the caller trades its token for a short-lived,
// single-use ticket passed as a query parameter.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Msg:  "Live feed is unavailable",
			Code: codeServiceUnavailable,
		})
	}

	ticket := uuid.NewString()
	userID := currentUserID(c)
	if err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket), userID.String(), cache.WSTicketTTL).Err(); err != nil {
		return s.respondWithError(c, models.NewInternalError(err))
	}

	return c.JSON(TicketResponse{
		Ticket:    ticket,
		ExpiresIn: int(cache.WSTicketTTL.Seconds()),
	})
}

// WSTicketRequired authenticates a WebSocket upgrade by consuming its ticket.
func (s *Server) WSTicketRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		ticket := strings.TrimSpace(c.Query("ticket"))
		if ticket == "" || s.redis == nil {
			middleware.AuthFailures.WithLabelValues("ws_ticket").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(models.Response(
				models.NewUnauthenticatedError("WebSocket ticket required"),
			))
		}

		userID, err := s.consumeTicket(c.UserContext(), ticket)
		if err != nil {
			middleware.AuthFailures.WithLabelValues("ws_ticket").Inc()
			if !errors.Is(err, redis.Nil) {
				middleware.Logger.WarnContext(c.UserContext(), "ws ticket lookup failed", "error", err)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(models.Response(
				models.NewInvalidTokenError("Invalid or expired WebSocket ticket"),
			))
		}

		c.Locals("userID", userID)
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))
		return c.Next()
	}
}

// consumeTicket atomically reads and deletes ticket.
func (s *Server) consumeTicket(ctx context.Context, ticket string) (models.ID, error) {
	raw, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		return "", err
	}
	return models.ParseID(raw)
}

// FeedWebSocket handles GET /ws/feed. Clients only receive; every feed event
// published by any instance is delivered to every connection.
func (s *Server) FeedWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(models.ID)
		if !ok || userID.IsZero() || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("feed websocket rejected", "user_id", userID.String(), "error", err)
			_ = conn.WriteJSON(models.ErrorResponse{Msg: err.Error(), Code: codeServiceUnavailable})
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
