package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openvoot/groupgate/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters for an endpoint class.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window.
	RequestsPerWindow int
	// Window is the time window for rate limiting.
	Window time.Duration
	// Burst allows temporary bursts above the steady rate.
	Burst int
}

// Rate limit profiles per endpoint class. Override via environment variables
// RATELIMIT_{PROFILE}_REQUESTS / _WINDOW_SEC / _BURST (useful in tests).
var (
	// StrictLimit for the token endpoint (credential guessing prevention).
	StrictLimit = RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	// ModerateLimit for consent submission and management operations.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 30, Window: time.Minute, Burst: 30}

	// LenientLimit for page-rendering endpoints.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit for verified resource reads.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = parseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = parseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = parseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = parseRateLimitFromEnv("PUBLIC", PublicLimit)
}

func parseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.RequestsPerWindow = n
		}
	}
	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Window = time.Duration(n) * time.Second
		}
	}
	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Burst = n
		}
	}

	return cfg
}

// KeyExtractor derives the bucket key for a request (IP, client id, ...).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client IP, honouring X-Forwarded-For and
// X-Real-IP set by a fronting proxy.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// FormFieldKeyExtractor keys on a form or query field, e.g. client_id.
func FormFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.FormValue(field)
	}
}

// CompositeKeyExtractor joins several extractors with sep, skipping empties.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, ex := range extractors {
			if key := ex(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// limiterSet manages one rate.Limiter per key.
type limiterSet struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (ls *limiterSet) get(key string) *rate.Limiter {
	if l, ok := ls.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	l, _ := ls.limiters.LoadOrStore(key, rate.NewLimiter(ls.rate, ls.burst))
	ls.maybeCleanup()
	return l.(*rate.Limiter)
}

// maybeCleanup drops idle limiters so ephemeral keys don't accumulate
// forever. A limiter with a full bucket has not been used for a while.
func (ls *limiterSet) maybeCleanup() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if time.Since(ls.lastCleanup) < 5*time.Minute {
		return
	}
	ls.lastCleanup = time.Now()

	ls.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(ls.burst) {
			ls.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware rate limits requests grouped by keyExtractor.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	ls := &limiterSet{
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := ls.get(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "too many requests, try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP address.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByIPAndFormField limits by IP plus a request field, e.g. the
// token endpoint keyed by IP and client_id.
func RateLimitByIPAndFormField(config RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		IPKeyExtractor,
		FormFieldKeyExtractor(field),
	))
}
