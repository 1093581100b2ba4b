package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/obscura-press/obscura/pkg/publishing"
)

// Sent is one recorded notification.
type Sent struct {
	To       string
	Template publishing.NotificationTemplate
	Fields   map[string]string
}

// Notifier records sends in memory. It is the test double for
// publishing.Notifier and supports failure injection.
type Notifier struct {
	mu   sync.RWMutex
	sent []Sent
	fail bool
}

// New creates a new recording notifier
func New() *Notifier {
	return &Notifier{}
}

// Send records the notification
func (n *Notifier) Send(ctx context.Context, to string, template publishing.NotificationTemplate, fields map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fail {
		return errors.New("injected send failure")
	}

	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	n.sent = append(n.sent, Sent{To: to, Template: template, Fields: copied})
	return nil
}

// Messages returns every recorded notification in send order
func (n *Notifier) Messages() []Sent {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Sent, len(n.sent))
	copy(out, n.sent)
	return out
}

// Fail toggles send failure injection
func (n *Notifier) Fail(fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = fail
}
