package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"notepipe/internal/config"
	"notepipe/internal/domain"
	"notepipe/internal/notify"
)

// EmailAPI is the subset of the SES v2 client the notifier uses.
type EmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Notifier emails run summaries through Amazon SES.
type Notifier struct {
	client        EmailAPI
	from          string
	recipients    []string
	onlyOnFailure bool
	logger        *zap.Logger
}

// NewNotifier creates an SES-backed RunNotifier.
func NewNotifier(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (*Notifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewNotifierWithAPI(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

// NewNotifierWithAPI creates a notifier on an existing client (for testing).
func NewNotifierWithAPI(client EmailAPI, cfg config.NotifyConfig, logger *zap.Logger) *Notifier {
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &Notifier{
		client:        client,
		from:          from,
		recipients:    cfg.Recipients,
		onlyOnFailure: cfg.OnlyOnFailure,
		logger:        logger,
	}
}

// NotifyRun sends the run summary unless the run was clean and only failures
// are reported.
func (n *Notifier) NotifyRun(ctx context.Context, report *domain.RunReport) error {
	if !notify.ShouldSend(report, n.onlyOnFailure) {
		n.logger.Debug("run clean, notification suppressed", zap.String("run_id", report.RunID.String()))
		return nil
	}

	subject := notify.Subject(report)
	body := notify.Body(report)

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: n.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	n.logger.Info("run summary sent", zap.String("run_id", report.RunID.String()), zap.Int("recipients", len(n.recipients)))
	return nil
}
