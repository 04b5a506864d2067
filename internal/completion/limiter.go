package completion

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"notepipe/internal/port"
)

// Limited paces calls to the wrapped Completer with a token bucket. It waits
// for a token and never retries.
type Limited struct {
	next    port.Completer
	limiter *rate.Limiter
}

// NewLimited allows requestsPerMinute calls per minute with a burst of one.
func NewLimited(next port.Completer, requestsPerMinute int) *Limited {
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (l *Limited) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for completion slot: %w", err)
	}
	return l.next.Complete(ctx, req)
}

func (l *Limited) Model() string {
	return l.next.Model()
}

// Timed bounds every call to the wrapped Completer by a fixed timeout.
type Timed struct {
	next    port.Completer
	timeout time.Duration
}

// NewTimed wraps next. A zero timeout disables the bound.
func NewTimed(next port.Completer, timeout time.Duration) *Timed {
	return &Timed{next: next, timeout: timeout}
}

func (t *Timed) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	if t.timeout <= 0 {
		return t.next.Complete(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, req)
}

func (t *Timed) Model() string {
	return t.next.Model()
}
