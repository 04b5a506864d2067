package port

import (
	"context"

	"notepipe/internal/domain"
)

// RunNotifier delivers a run summary after each pipeline invocation.
type RunNotifier interface {
	NotifyRun(ctx context.Context, report *domain.RunReport) error
}
