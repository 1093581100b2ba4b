package publishing

import "context"

// NoopNotifier is a no-operation implementation of Notifier.
// Useful when moderation emails are disabled or in tests.
type NoopNotifier struct{}

// NewNoopNotifier creates a new no-operation notifier
func NewNoopNotifier() Notifier {
	return &NoopNotifier{}
}

// Send does nothing and returns nil
func (n *NoopNotifier) Send(ctx context.Context, to string, template NotificationTemplate, fields map[string]string) error {
	return nil
}
