package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/farmsight/agrirag/internal/logging"
)

const (
	// defaultRateLimit is the sustained per-IP request rate (req/s) when the
	// server config leaves it zero.
	defaultRateLimit = 10

	// defaultRateBurst absorbs field gateways that flush a batch of queued
	// readings at once; within the burst nothing is rejected.
	defaultRateBurst = 20

	// staleAfter is how long an idle IP keeps its bucket before eviction.
	staleAfter = 5 * time.Minute
)

// bucketEntry pairs an IP's token bucket with its last activity time.
type bucketEntry struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket across the write endpoints.
// A background goroutine drops buckets idle longer than staleAfter so the
// map stays bounded no matter how many distinct IPs show up.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucketEntry
	rps     rate.Limit
	burst   int
	log     *slog.Logger
}

// newRateLimiter builds a rateLimiter and starts its eviction goroutine.
// The returned stop func terminates the goroutine; call it on shutdown.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		buckets: make(map[string]*bucketEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		log:     log,
	}

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				rl.evictStale()
			}
		}
	}()

	return rl, func() { close(stopCh) }
}

// allow reports whether a request from ip may proceed, creating the IP's
// bucket on first sight and refreshing its activity time.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.buckets[ip]
	if !ok {
		entry = &bucketEntry{bucket: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.bucket.Allow()
}

func (rl *rateLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleAfter)
	for ip, entry := range rl.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// middleware rejects over-limit requests with 429 and a Retry-After header
// before they reach next.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !rl.allow(ip) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. X-Forwarded-For is deliberately
// ignored — the server binds to localhost or a trusted field network, and a
// spoofable header would defeat the per-IP bucket.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
