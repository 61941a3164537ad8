package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/bkaraoglu/stajportal/internal/models"
)

// SESLockoutNotifier emails the internship coordinator when a
// principal's PIN is locked, using AWS SES.
type SESLockoutNotifier struct {
	sesClient        *ses.Client
	fromAddress      string
	coordinatorEmail string
	logger           *slog.Logger
}

// NewSESLockoutNotifier creates a new SES-backed lockout notifier
func NewSESLockoutNotifier(region, fromAddress, coordinatorEmail string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESLockoutNotifier{
		sesClient:        ses.NewFromConfig(cfg),
		fromAddress:      fromAddress,
		coordinatorEmail: coordinatorEmail,
		logger:           logger,
	}, nil
}

// NotifyLockEngaged sends the lockout notification email
func (n *SESLockoutNotifier) NotifyLockEngaged(ctx context.Context, entityType models.EntityType, entityID string, lockEnd time.Time) error {
	kind := "Öğretmen"
	if entityType == models.EntityTypeCompany {
		kind = "İşletme"
	}

	subject := fmt.Sprintf("Staj Portalı: %s hesabı kilitlendi", kind)
	textBody := fmt.Sprintf(`%s hesabı (%s) art arda hatalı PIN denemeleri nedeniyle kilitlendi.

Kilit bitişi: %s

Hesabı yönetici panelinden elle açabilir veya kilidin kendiliğinden kalkmasını bekleyebilirsiniz.

Bu otomatik bir bildirimdir, lütfen yanıtlamayın.`,
		kind, entityID, lockEnd.Format(time.RFC3339))

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.coordinatorEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send lockout notification: %w", err)
	}

	n.logger.Info("lockout notification sent",
		slog.String("entity_type", string(entityType)),
		slog.String("entity_id", entityID))

	return nil
}
