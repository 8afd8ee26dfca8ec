package testutil

import (
	"sync"

	"github.com/tomtomtong/comfyTrade/node"
)

// Notification is one captured user notification.
type Notification struct {
	Text  string
	Level node.NotifyLevel
}

// CollectNotifier captures notifications for assertions. Safe for
// concurrent use.
type CollectNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

// Notify is the node.Notifier to pass into the component under test.
func (c *CollectNotifier) Notify(text string, level node.NotifyLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, Notification{Text: text, Level: level})
}

// All returns the captured notifications in order.
func (c *CollectNotifier) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.notes))
	copy(out, c.notes)
	return out
}

// Len returns the number of captured notifications.
func (c *CollectNotifier) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notes)
}
