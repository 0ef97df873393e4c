package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"taprealm/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis. It returns nil when addr is empty or the
// ping fails, and the limiter then counts in process memory.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limits are per instance", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Limiter is a fixed-window request limiter using Redis INCR/EXPIRE.
// Redis errors fail open.
type Limiter struct {
	client *redis.Client
	local  *memoryWindow
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client, local: newMemoryWindow()}
}

// StartCleanup evicts stale in-memory windows until ctx is done.
func (l *Limiter) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if l.client != nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.local.sweep(maxAge)
			}
		}
	}()
}

// ByIP limits requests per client IP.
// key format: rl:<scope>:<window_seconds>:<ip>
func (l *Limiter) ByIP(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		l.check(c, "rl:"+scope+":"+windowKey(window)+":"+c.ClientIP(), maxRequests, window)
	}
}

// ByUser limits requests per authenticated user. JWT must run first.
// key format: rl:<scope>:<window_seconds>:u<user_id>
func (l *Limiter) ByUser(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64(UserIDKey)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		l.check(c, "rl:"+scope+":"+windowKey(window)+":u"+strconv.FormatInt(userID, 10), maxRequests, window)
	}
}

func (l *Limiter) check(c *gin.Context, key string, maxRequests int, window time.Duration) {
	val, err := l.incr(c.Request.Context(), key, window)
	if err != nil {
		// on Redis error, fail-open (allow) but set header
		RLErrors.Inc()
		c.Header("X-RateLimit-Error", "redis-error")
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

	if val > int64(maxRequests) {
		RLBlocked.WithLabelValues(c.FullPath()).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": int(window.Seconds()),
		})
		return
	}

	RLRequests.WithLabelValues(c.FullPath()).Inc()
	c.Next()
}

func (l *Limiter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if l.client == nil {
		return l.local.incr(key, window), nil
	}
	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		// first increment, set expiry
		l.client.Expire(ctx, key, window)
	}
	return val, nil
}

func windowKey(window time.Duration) string {
	return strconv.FormatInt(int64(window.Seconds()), 10)
}
