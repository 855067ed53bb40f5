package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/internal/application"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
	"github.com/oksasatya/waveai-auth/pkg/response"
)

// statusFor maps the application error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrEmailRegistered):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, application.ErrUserNotFound):
		return http.StatusBadRequest, "User not found"
	case errors.Is(err, application.ErrInvalidInput):
		return http.StatusBadRequest, "invalid payload"
	case errors.Is(err, application.ErrNotFound), errors.Is(err, application.ErrConflict):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, "Inactive user"
	case errors.Is(err, application.ErrOAuthNotConfigured):
		return http.StatusServiceUnavailable, "Google OAuth not configured"
	case errors.Is(err, application.ErrUpstream):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		helpers.LogError(logger, "request failed", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
			"status":     status,
		})
	}
	response.Fail(c, status, msg, nil)
}
