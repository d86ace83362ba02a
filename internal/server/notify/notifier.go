// Package notify delivers outbound user notifications (emails) produced by
// the auth and invitation flows.
package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/logging"
)

// Template names understood by the email worker.
const (
	TemplateBoardInvite   = "board-invite"
	TemplateTwoFactorCode = "two-factor-code"
)

// Notifier hands a templated message for recipient to a delivery channel.
type Notifier interface {
	Send(ctx context.Context, template, recipient string, vars map[string]string) error
}

// Message is the wire form of a queued email.
type Message struct {
	Template  string            `json:"template"`
	Recipient string            `json:"recipient"`
	Vars      map[string]string `json:"vars"`
	CreatedAt time.Time         `json:"created_at"`
}

// LogNotifier writes messages to the log instead of delivering them.
// It is used when no broker is configured.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notify")}
}

// Send logs template and recipient only; vars may carry secrets such as
// verification codes and are logged at debug level.
func (n *LogNotifier) Send(ctx context.Context, template, recipient string, vars map[string]string) error {
	n.logger.Info(ctx, "email queued", "template", template, "recipient", recipient)
	n.logger.Debug(ctx, "email vars", "template", template, "vars", vars)
	return nil
}
