package notification

import (
	"context"
	"log/slog"
)

// LogSender writes confirmations to the log. Used when no broker is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, c Confirmation) error {
	s.logger.InfoContext(ctx, "registration confirmed",
		"order_id", c.OrderID.String(),
		"email", c.Email,
		"event", c.EventName,
		"tickets", len(c.Tickets),
		"total", c.Total.String(),
		"request_id", c.RequestID,
	)
	return nil
}
