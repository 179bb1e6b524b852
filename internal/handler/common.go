package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/streetwatch/patrol-log/internal/service"
)

// getUserID extracts the authenticated user id stored in the context by
// the JWT middleware. JWT numeric claims arrive as float64; older tokens
// may carry the subject as a string.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// sessionFrom builds the service Session for the current request.
func sessionFrom(c echo.Context) (service.Session, error) {
	uid, err := getUserID(c)
	if err != nil {
		return service.Session{}, err
	}
	return service.Session{UserID: uid}, nil
}

// writeServiceError converts the controller's error taxonomy into the
// JSON error responses the client expects. Nothing propagates unhandled.
func writeServiceError(c echo.Context, err error) error {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Error()})
	case errors.Is(err, service.ErrNoSession):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, service.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrPatrolNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "patrol not found"})
	case errors.Is(err, service.ErrPatrolClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "patrol already closed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
