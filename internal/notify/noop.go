package notify

import (
	"context"
	"log/slog"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded drops. It is used
// when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards drops with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendDrop logs and discards a drop.
func (n *NoOpNotifier) SendDrop(_ context.Context, userID int64, event domain.DropEvent, _ domain.Subscription) error {
	n.log.Info("notification discarded (no backend configured)",
		"user_id", userID,
		"subscription_id", event.SubscriptionID,
		"query", event.Query,
		"old_price", event.OldPrice,
		"new_price", event.NewPrice,
	)
	return nil
}
