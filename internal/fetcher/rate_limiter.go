package fetcher

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Limiter blocks the caller until the next request may be sent.
type Limiter interface {
	WaitTurn()
}

// QuotaLimiter follows a server-announced request quota: once the remaining
// count is used up, callers wait until the reset time.
type QuotaLimiter struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time

	logger *log.Logger
	now    func() time.Time
	sleep  func(time.Duration)
}

func NewQuotaLimiter(remaining int, logger *log.Logger) *QuotaLimiter {
	return &QuotaLimiter{
		remaining: remaining,
		logger:    logger,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

func (q *QuotaLimiter) WaitTurn() {
	q.mu.Lock()
	var wait time.Duration
	if q.remaining <= 0 {
		wait = q.resetAt.Sub(q.now())
	}
	q.mu.Unlock()

	if wait > 0 {
		q.logger.Info("hit rate limit, waiting", "seconds", wait.Seconds())
		q.sleep(wait)
	}
}

func (q *QuotaLimiter) Update(remaining int, resetAt time.Time) {
	q.mu.Lock()
	q.remaining = remaining
	q.resetAt = resetAt
	q.mu.Unlock()
}

// UpdateFromHeaders reads X-RateLimit-Remaining and X-RateLimit-Reset (unix
// seconds). Responses without both headers leave the quota untouched.
func (q *QuotaLimiter) UpdateFromHeaders(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	q.Update(remaining, time.Unix(reset, 0))
}

// IntervalLimiter enforces a minimum spacing between requests.
type IntervalLimiter struct {
	limiter *rate.Limiter
	sleep   func(time.Duration)
}

func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &IntervalLimiter{limiter: rate.NewLimiter(limit, 1), sleep: time.Sleep}
}

func (l *IntervalLimiter) WaitTurn() {
	r := l.limiter.Reserve()
	if delay := r.Delay(); delay > 0 {
		l.sleep(delay)
	}
}
