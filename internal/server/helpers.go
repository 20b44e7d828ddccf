// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"

	"arcade/internal/catalog"
	"arcade/internal/middleware"
	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable codes for catalog availability failures.
const (
	codeCatalogNotConfigured = "CATALOG_NOT_CONFIGURED"
	codeCatalogUnavailable   = "CATALOG_UNAVAILABLE"
	codeServiceUnavailable   = "SERVICE_UNAVAILABLE"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// statusForError maps an error to the HTTP status sent to clients.
func (s *Server) statusForError(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrUpstream):
		return fiber.StatusBadGateway
	}

	switch models.ErrorCode(err) {
	case models.CodeValidation, models.CodeConflict, models.CodeInvalidCredentials:
		return fiber.StatusBadRequest
	case models.CodeUnauthenticated, models.CodeInvalidToken:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		if s.config != nil && s.config.ForbiddenAs403 {
			return fiber.StatusForbidden
		}
		return fiber.StatusUnauthorized
	case models.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// errorBody renders err for clients without leaking internal causes.
func errorBody(err error) models.ErrorResponse {
	switch {
	case errors.Is(err, catalog.ErrNotConfigured):
		return models.ErrorResponse{Msg: catalog.ErrNotConfigured.Error(), Code: codeCatalogNotConfigured}
	case errors.Is(err, catalog.ErrUpstream):
		return models.ErrorResponse{Msg: catalog.ErrUpstream.Error(), Code: codeCatalogUnavailable}
	}
	return models.Response(err)
}

// respondWithError writes err with its mapped status. Server-side failures
// are logged with the request context.
func (s *Server) respondWithError(c *fiber.Ctx, err error) error {
	status := s.statusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			"status", status,
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(errorBody(err))
}

// parseID extracts a route parameter as an entity ID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param, label string) (models.ID, error) {
	id, err := models.ParseID(c.Params(param))
	if err != nil {
		_ = s.respondWithError(c, models.NewValidationError("Invalid "+label))
		return "", errResponseWritten
	}
	return id, nil
}

// parseBody decodes the JSON request body into dest.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = s.respondWithError(c, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// currentUserID returns the caller resolved by the authorization gate.
func currentUserID(c *fiber.Ctx) models.ID {
	id, _ := middleware.UserID(c)
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
