package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	apiContext "pushhook/internal/api/context"
	"pushhook/internal/pkg/errors"
	"pushhook/internal/platform/metrics"
)

// Limiter allows at most limit calls per minute for key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) bool
}

// MemoryLimiter is a per-process token bucket.
type MemoryLimiter struct {
	store *sync.Map // map[string]*Bucket
	stop  chan struct{}
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	lastAccess time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	rl := &MemoryLimiter{
		store: &sync.Map{},
		stop:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *MemoryLimiter) Close() {
	close(rl.stop)
}

func (rl *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.store.Range(func(key, value interface{}) bool {
				bucket := value.(*Bucket)
				bucket.mu.Lock()
				if now.Sub(bucket.lastAccess) > 10*time.Minute {
					rl.store.Delete(key)
				}
				bucket.mu.Unlock()
				return true
			})
		}
	}
}

func (rl *MemoryLimiter) Allow(ctx context.Context, key string, limit int) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	// refill at limit per 60 seconds
	elapsed := now.Sub(bucket.lastRefill)
	refillTokens := int(elapsed.Seconds() * float64(limit) / 60.0)
	if refillTokens > 0 {
		bucket.tokens += refillTokens
		if bucket.tokens > limit {
			bucket.tokens = limit
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

// RedisLimiter is a sliding window shared by every server instance. Redis errors fail open.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	logger zerolog.Logger
}

func NewRedisLimiter(client *redis.Client, logger zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		window: time.Minute,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string, limit int) bool {
	now := time.Now()
	windowStart := now.Add(-rl.window)
	redisKey := "pushhook:ratelimit:" + key

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Warn().Err(err).Str("key", key).Msg("Rate limit check failed, allowing request")
		return true
	}

	if countCmd.Val() >= int64(limit) {
		return false
	}

	member := fmt.Sprintf("%d-%s", now.UnixNano(), key)
	if err := rl.client.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		rl.logger.Warn().Err(err).Str("key", key).Msg("Failed to add rate limit entry")
	}
	rl.client.Expire(ctx, redisKey, rl.window*2)
	return true
}

// RateLimit keys the limiter by keyFn(r) under the given scope. A limit of 0 disables it.
func RateLimit(limiter Limiter, scope string, limit int, keyFn func(*http.Request) string, m *metrics.Metrics) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil || limit <= 0 {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + keyFn(r)
			if !limiter.Allow(r.Context(), key, limit) {
				m.RateLimited(scope)
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}
			next(w, r)
		}
	}
}

// ClientIP is the fallback key for unauthenticated routes.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PathParam keys by a route parameter, e.g. the webhook endpoint id.
func PathParam(name string) func(*http.Request) string {
	return func(r *http.Request) string {
		ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
		return ps.ByName(name)
	}
}

// ByUser keys by the authenticated user, falling back to the client address.
func ByUser(r *http.Request) string {
	if id := UserID(r.Context()); id != "" {
		return id
	}
	return ClientIP(r)
}
