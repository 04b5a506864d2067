package noop

import (
	"context"

	"go.uber.org/zap"

	"notepipe/internal/domain"
)

// Notifier logs the run summary instead of delivering it.
type Notifier struct {
	logger *zap.Logger
}

// NewNotifier creates a RunNotifier that only logs.
func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) NotifyRun(_ context.Context, report *domain.RunReport) error {
	n.logger.Info("run summary",
		zap.String("run_id", report.RunID.String()),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.Int("skipped", report.Skipped()),
		zap.Bool("aborted", report.Aborted),
	)
	return nil
}
