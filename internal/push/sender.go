// Package push delivers notifications to device push tokens.
package push

import (
	"context"
	"errors"
	"log/slog"
)

// ErrEmptyToken is returned when a send is attempted without a device token.
var ErrEmptyToken = errors.New("push: empty device token")

// Sender delivers one message to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, token, title, body string) error {
	if token == "" {
		return ErrEmptyToken
	}
	s.log.Info("push notification", "token", mask(token), "title", title, "body", body)
	return nil
}

// mask keeps enough of a token to correlate log lines without leaking it.
func mask(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
