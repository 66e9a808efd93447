package notify

import (
	"context"

	"github.com/sweeney/heater-control/internal/logger"
)

// LogNotifier writes alerts to the log only. Used when no transport is
// configured.
type LogNotifier struct {
	recipient string
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(recipient string) *LogNotifier {
	return &LogNotifier{recipient: recipient}
}

// Send logs msg at warn level so it stands out from the status lines.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	logger.Warn().
		Str("recipient", n.recipient).
		Str("event", string(msg.Event)).
		Str("run_id", msg.RunID).
		Msg(msg.Text)
	return nil
}

// Close is a no-op.
func (n *LogNotifier) Close() error {
	return nil
}
