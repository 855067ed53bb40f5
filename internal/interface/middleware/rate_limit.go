package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/waveai-auth/pkg/response"
)

// ipFromCtx returns the address set by RealIP, then gin's view, then "unknown".
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// unmatchedPath labels requests no route answered; the raw URL is client
// controlled and would grow metric series and limiter keys without bound.
const unmatchedPath = "unmatched"

// normalizePath prefers the route template so /users/:id counts as one bucket.
func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return unmatchedPath
}

// KeyFunc names the bucket a request is counted in.
type KeyFunc func(c *gin.Context) string

// AllowFunc returns true for requests that skip the limiter.
type AllowFunc func(c *gin.Context) bool

// KeyByIPAndPath buckets by client IP and route template.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// fixedWindow increments the bucket, starts its window on the first hit and
// returns {count, remaining ttl in ms}.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

func hit(ctx context.Context, rdb redis.UniversalClient, key string, window time.Duration) (int, time.Duration, error) {
	res, err := fixedWindow.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	return int(res[0]), time.Duration(res[1]) * time.Millisecond, nil
}

// RateLimit is a fixed-window limiter on redis. It fails open when redis is
// unreachable and reports X-RateLimit-* headers on every counted request.
func RateLimit(rdb redis.UniversalClient, limit int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		count, ttl, err := hit(c.Request.Context(), rdb, keyFn(c), window)
		if err != nil {
			c.Next()
			return
		}

		reset := int(ttl.Seconds())
		if reset < 0 {
			reset = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))

		if count > limit {
			if reset > 0 {
				c.Header("Retry-After", strconv.Itoa(reset))
			}
			response.Abort(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
