package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	rateLimitKeyPrefix   = "hirehub:ratelimit:"
	limiterCleanupPeriod = 5 * time.Minute
	limiterEntryTTL      = 10 * time.Minute
)

// RateLimiter limits requests per client IP. It uses Redis when available and
// an in-process limiter otherwise, or when Redis fails.
type RateLimiter struct {
	redis    *redis_rate.Limiter
	fallback *localLimiter
	limit    redis_rate.Limit
	rs       *Responder
}

// NewRateLimiter allows perMinute requests per IP each minute. rdb may be nil.
// The in-process limiter's cleanup stops when ctx is done.
func NewRateLimiter(ctx context.Context, rdb *redis.Client, perMinute int, rs *Responder) *RateLimiter {
	rl := &RateLimiter{
		fallback: newLocalLimiter(ctx),
		limit:    redis_rate.PerMinute(perMinute),
		rs:       rs,
	}
	if rdb != nil {
		rl.redis = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitKeyPrefix + clientIP(r)
		res := rl.allow(r.Context(), key)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Success: false,
				Message: fmt.Sprintf("Too many requests. Retry after %d seconds.", retryAfter),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) *redis_rate.Result {
	if rl.redis != nil {
		res, err := rl.redis.Allow(ctx, key, rl.limit)
		if err == nil {
			return res
		}
		slog.WarnContext(ctx, "redis rate limiter failed, using local limiter", "error", err)
	}
	return rl.fallback.allow(key, rl.limit)
}

// clientIP keys on the connection address. Forwarded headers only count
// when the server runs chi's RealIP, which rewrites RemoteAddr first.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

func newLocalLimiter(ctx context.Context) *localLimiter {
	l := &localLimiter{limiters: map[string]*limiterEntry{}}
	go l.cleanup(ctx)
	return l
}

func (l *localLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-limiterEntryTTL)
			l.mu.Lock()
			for key, entry := range l.limiters {
				if entry.lastAccess.Before(cutoff) {
					delete(l.limiters, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	perSecond := float64(limit.Rate) / limit.Period.Seconds()

	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst)}
		l.limiters[key] = entry
	}
	entry.lastAccess = time.Now()
	l.mu.Unlock()

	res := &redis_rate.Result{Limit: limit, RetryAfter: -1}
	if entry.limiter.Allow() {
		res.Allowed = 1
	} else {
		res.RetryAfter = time.Duration(float64(time.Second) / perSecond)
	}
	if remaining := int(entry.limiter.Tokens()); remaining > 0 {
		res.Remaining = remaining
	}
	return res
}
