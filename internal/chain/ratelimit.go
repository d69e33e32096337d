package chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"loanScope/internal/metrics"
)

// Limiter is a token bucket applied before each RPC call.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows rps calls per second with the given burst. A non-positive
// rps returns nil, which disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	metrics.RPCRateLimitWaits.Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

var (
	rateLimitedStatus = regexp.MustCompile(`\b429\b`)
	serverErrorStatus = regexp.MustCompile(`\b50[0-4]\b`)
)

// ClassifyRPCError maps an RPC error to a coarse status label. HTTP status
// codes are read from rpc.HTTPError when available and otherwise only match
// as whole words in the message.
func ClassifyRPCError(err error) string {
	if err == nil {
		return "ok"
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limited"
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return "server_error"
		}
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "rate limit") || rateLimitedStatus.MatchString(lower) || strings.Contains(lower, "too many requests"):
		return "rate_limited"
	case serverErrorStatus.MatchString(lower) || strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") || strings.Contains(lower, "service unavailable"):
		return "server_error"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "client_error"
	}
}

func recordCall(method string, err error) {
	metrics.RPCCallsTotal.WithLabelValues(method, ClassifyRPCError(err)).Inc()
}
