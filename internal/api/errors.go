package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/internal/engine"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// statusOf maps store and engine errors to HTTP status codes.
func statusOf(err error) int {
	var pe *engine.PersistenceError
	var se *engine.SubscriptionError
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidParent),
		errors.Is(err, types.ErrInvalidTitle):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrStaleReference):
		return http.StatusConflict
	case errors.As(err, &pe), errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs server-side errors and turns err into an HTTP error.
func (s *Server) fail(c echo.Context, err error) error {
	code := statusOf(err)
	entry := s.log.WithError(err).WithFields(log.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return echo.NewHTTPError(code, err.Error())
}
