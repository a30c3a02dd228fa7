package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/genroute/internal/httputil"
	"github.com/af-corp/genroute/internal/telemetry"
)

const (
	defaultRPM = 60

	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// Checker is satisfied by *Limiter.
type Checker interface {
	Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error)
}

// Middleware returns chi middleware that enforces a per-client-IP requests-per-minute limit.
// It expects RemoteAddr to already hold the client address (chi's RealIP middleware).
func Middleware(limiter Checker, rpm int, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	if rpm <= 0 {
		rpm = defaultRPM
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")
			ip := clientIP(r)

			rpmKey := fmt.Sprintf("rpm:ip:%s", ip)
			result, _ := limiter.Check(r.Context(), rpmKey, int64(rpm), time.Minute)

			// Always set rate limit headers
			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"client_ip", ip,
					"dimension", "rpm",
					"limit", rpm,
				)
				metrics.RecordRateLimitHit("rpm")
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %s", rpm, result.ResetAt.Format(time.RFC3339)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
