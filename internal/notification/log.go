package notification

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-verify/pkg/auth"
)

// LogSender writes verification codes to the log instead of mailing them.
// It is used when no SMTP server is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that logs codes at info level.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendVerificationCode logs the recipient and the formatted code. It never fails.
func (s *LogSender) SendVerificationCode(ctx context.Context, to, code string) error {
	s.logger.InfoContext(ctx, "verification code (email delivery disabled)",
		"to", to,
		"code", auth.FormatCode(code),
	)
	return nil
}
