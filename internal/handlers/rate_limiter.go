package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cbg-gallery/portal/internal/platform/auth"
	"github.com/cbg-gallery/portal/internal/platform/httpx"
)

const limiterIdleTTL = 10 * time.Minute

// memberRateLimiter keeps one token bucket per member.
type memberRateLimiter struct {
	interval time.Duration
	burst    int
	clock    func() time.Time

	mu      sync.Mutex
	buckets map[string]*memberBucket
}

type memberBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newMemberRateLimiter(perMinute int, clock func() time.Time) *memberRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &memberRateLimiter{
		interval: time.Minute / time.Duration(perMinute),
		burst:    perMinute,
		clock:    clock,
		buckets:  make(map[string]*memberBucket),
	}
}

// Allow consumes one token from key's bucket.
func (l *memberRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok {
		l.pruneIdleLocked(now)
		bucket = &memberBucket{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.buckets[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

func (l *memberRateLimiter) pruneIdleLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if now.Sub(bucket.lastSeen) > limiterIdleTTL {
			delete(l.buckets, key)
		}
	}
}

// Middleware rejects requests over the member's budget with 429.
func (l *memberRateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key string
		if member, ok := auth.MemberFromContext(r.Context()); ok {
			key = member.ID
		}
		if !l.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many batch submissions, retry shortly", http.StatusTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfterSeconds is the time until one token refills, rounded up.
func (l *memberRateLimiter) retryAfterSeconds() int {
	return int(math.Ceil(l.interval.Seconds()))
}
