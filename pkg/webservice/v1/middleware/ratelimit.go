package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/response"
)

const (
	// Number of tracked clients that triggers a sweep of idle buckets
	sweepThreshold = 1024
)

var (
	ErrRateLimitExceeded = errors.New("middleware: rate limit exceeded")
)

type RateLimiterParams struct {
	Logger      *logging.Logger
	Writer      response.HttpWriter
	MaxRequests int
	Interval    time.Duration
}

type bucket struct {
	tokens float64
	last   time.Time
}

// Token bucket rate limiter keyed by client IP address. Each client
// may burst up to MaxRequests and regains MaxRequests tokens per
// Interval.
type RateLimiter struct {
	logger      *logging.Logger
	writer      response.HttpWriter
	maxRequests float64
	interval    time.Duration
	buckets     map[string]*bucket
	now         func() time.Time
	mu          sync.Mutex
}

func NewRateLimiter(params *RateLimiterParams) *RateLimiter {
	interval := params.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &RateLimiter{
		logger:      logger,
		writer:      params.Writer,
		maxRequests: float64(params.MaxRequests),
		interval:    interval,
		buckets:     make(map[string]*bucket),
		now:         time.Now,
	}
}

// Returns true and consumes a token if the client has one available
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rate := rl.maxRequests / rl.interval.Seconds()

	b, ok := rl.buckets[client]
	if !ok {
		if len(rl.buckets) >= sweepThreshold {
			rl.sweep(now)
		}
		b = &bucket{tokens: rl.maxRequests, last: now}
		rl.buckets[client] = b
	} else {
		b.tokens = min(rl.maxRequests, b.tokens+now.Sub(b.last).Seconds()*rate)
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Drops buckets idle long enough to have refilled completely
func (rl *RateLimiter) sweep(now time.Time) {
	for client, b := range rl.buckets {
		if now.Sub(b.last) >= rl.interval {
			delete(rl.buckets, client)
		}
	}
}

// Negroni middleware that rejects the request with 429 Too Many
// Requests when the client has exhausted its tokens
func (rl *RateLimiter) Limit(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	client := clientAddress(r)
	if rl.Allow(client) {
		next(w, r)
		return
	}
	rl.logger.Security(logging.SecurityLogEntry{
		Severity:        logging.SeverityMedium,
		Category:        logging.CategoryAuthentication,
		Description:     "rate limit exceeded",
		Details:         fmt.Sprintf("%s %s", r.Method, r.URL.Path),
		Source:          logging.SourceWebService,
		OffenderAddress: client,
	})
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.interval.Seconds()/rl.maxRequests)+1))
	rl.writer.Write(w, r, http.StatusTooManyRequests, response.WebServiceResponse{
		Code:    http.StatusTooManyRequests,
		Error:   ErrRateLimitExceeded.Error(),
		Success: false,
	})
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
