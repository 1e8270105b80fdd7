package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/logging"
)

// LogMailer writes messages to the log instead of delivering them.
// It is the development transport.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.Validate(); err != nil {
		return SendResult{}, err
	}

	id := uuid.NewString()
	logging.Component(ctx, m.logger, "mailer", "send").Info("mail not delivered (log transport)",
		"message_id", id,
		"kind", msg.Kind,
		"from", msg.From.String(),
		"to", msg.To,
		"bcc", msg.Bcc,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return SendResult{MessageID: id}, nil
}
