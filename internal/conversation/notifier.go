// ABOUTME: In-memory fan-out notifier for conversation change events
// ABOUTME: Lets views re-render on mutation without polling the service

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Notifier provides in-memory pub/sub for conversation changes.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan Change // subID -> ch
	logger      *slog.Logger
}

// NewNotifier creates a notifier. Pass nil logger for default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		subscribers: make(map[string]chan Change),
		logger:      logger.With("component", "notifier"),
	}
}

// Subscribe registers a subscriber. Returns a channel that receives
// changes and a subscription ID for later unsubscription. The
// subscription is automatically cleaned up when ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Change, string) {
	subID := uuid.New().String()
	ch := make(chan Change, subscriberBufferSize)

	n.mu.Lock()
	n.subscribers[subID] = ch
	n.mu.Unlock()

	n.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		n.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends a change to every subscriber. Non-blocking: the change
// is dropped for subscribers whose channels are full. Sends stay under
// the read lock so a concurrent Unsubscribe cannot close a channel
// mid-send.
func (n *Notifier) Publish(change Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for subID, ch := range n.subscribers {
		select {
		case ch <- change:
			// Sent
		default:
			// Subscriber channel full — drop change for this subscriber
			n.logger.Debug("dropped change for slow subscriber",
				"sub_id", subID,
				"kind", change.Kind)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (n *Notifier) Unsubscribe(subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch, ok := n.subscribers[subID]
	if !ok {
		return
	}

	delete(n.subscribers, subID)
	close(ch)

	n.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the notifier and closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for subID, ch := range n.subscribers {
		close(ch)
		delete(n.subscribers, subID)
	}

	n.logger.Debug("notifier closed")
}
