package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse[T any] struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      any       `json:"meta,omitempty"`
	Error     any       `json:"error,omitempty"`
}

func envelope[T any](c *gin.Context, status int, ok bool, message string) APIResponse[T] {
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: c.GetString("request_id"),
		Success:   ok,
		Message:   message,
	}
}

// Success builds a success envelope; status 0 means 200.
func Success[T any](c *gin.Context, status int, data T, message string, meta any) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := envelope[T](c, status, true, message)
	resp.Data = data
	resp.Meta = meta
	return resp
}

// Error builds a failure envelope; status 0 means 400. details lands in "error".
func Error[T any](c *gin.Context, status int, message string, details any) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := envelope[T](c, status, false, message)
	resp.Error = details
	return resp
}

// OK writes a success envelope.
func OK[T any](c *gin.Context, status int, data T, message string) {
	resp := Success(c, status, data, message, nil)
	c.JSON(resp.Status, resp)
}

// Fail writes a failure envelope.
func Fail(c *gin.Context, status int, message string, details any) {
	resp := Error[any](c, status, message, details)
	c.JSON(resp.Status, resp)
}

// Abort writes a failure envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message string, details any) {
	resp := Error[any](c, status, message, details)
	c.AbortWithStatusJSON(resp.Status, resp)
}
