// Package logemail is the development email channel: every send is written
// to the process log and reported as delivered. Production deployments plug
// in a real provider behind protocol.EmailSender.
package logemail

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

type Sender struct {
	logger *slog.Logger
}

func NewSender(logger *slog.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, to, subject, html, from string) (protocol.SendResult, error) {
	messageID := uuid.NewString()

	s.logger.InfoContext(ctx, "email send",
		"to", to,
		"from", from,
		"subject", subject,
		"bytes", len(html),
		"message_id", messageID)

	return protocol.SendResult{Success: true, MessageID: messageID}, nil
}
