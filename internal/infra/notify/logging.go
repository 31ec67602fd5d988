package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/logger"
)

// LoggingNotifier writes codes to the log instead of sending mail. It
// stands in for the mail gateway in development; downstream delivery is
// driven off the Kafka events in deployed environments.
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier constructs a log-backed notifier.
func NewLoggingNotifier(log *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: log}
}

// SendVerificationCode logs the code with the recipient masked.
func (n *LoggingNotifier) SendVerificationCode(_ context.Context, email, displayName string, purpose domain.VerificationPurpose, code string) error {
	n.logger.Info("verification code issued",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("recipient", displayName),
		zap.String("purpose", string(purpose)),
		zap.String("code", logger.MaskString(code)),
	)
	return nil
}

var _ port.Notifier = (*LoggingNotifier)(nil)
