package offcache

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MessageType discriminates worker <-> application messages.
type MessageType string

const (
	// MessageSyncUpdate tells open application instances that a cached API
	// response was refreshed from the network.
	MessageSyncUpdate MessageType = "SYNC_UPDATE"
	// MessageCacheCleared confirms a finished CLEAR_USER_CACHE purge.
	MessageCacheCleared MessageType = "CACHE_CLEARED"
	// MessageClearUserCache is sent by an application instance at logout.
	MessageClearUserCache MessageType = "CLEAR_USER_CACHE"
)

// Message is the JSON-serializable unit of the worker <-> application
// protocol. Timestamp and Path are set only on SYNC_UPDATE.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"` // ISO-8601, capture time of the network response
	Path      string      `json:"path,omitempty"`
}

// subscriberBuffer is the channel buffer for each subscriber. Delivery order
// is preserved per subscriber; a full buffer drops the message for that
// subscriber only.
const subscriberBuffer = 64

// notifier fans worker events out to every subscribed application instance.
// Delivery is best-effort, at-most-once, non-blocking.
type notifier struct {
	mu    sync.RWMutex
	subs  map[string]chan Message
	log   Logger
	hooks Hooks
}

func newNotifier(log Logger, hooks Hooks) *notifier {
	return &notifier{
		subs:  make(map[string]chan Message),
		log:   log,
		hooks: hooks,
	}
}

// subscribe registers an application instance. The subscription is cleaned up
// when ctx is cancelled or unsubscribe is called with the returned id.
func (n *notifier) subscribe(ctx context.Context) (<-chan Message, string) {
	id := uuid.New().String()
	ch := make(chan Message, subscriberBuffer)

	n.mu.Lock()
	n.subs[id] = ch
	n.mu.Unlock()

	n.log.Debug("subscriber added", Fields{"sub_id": id})

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			n.unsubscribe(id)
		}()
	}

	return ch, id
}

func (n *notifier) unsubscribe(id string) {
	n.mu.Lock()
	ch, ok := n.subs[id]
	if ok {
		delete(n.subs, id)
	}
	n.mu.Unlock()
	if !ok {
		return
	}
	close(ch)
	n.log.Debug("subscriber removed", Fields{"sub_id": id})
}

// broadcast delivers msg to every subscriber. Slow subscribers lose the
// message rather than blocking the worker. The read lock is held across the
// sends; they never block, and holding it keeps unsubscribe from closing a
// channel mid-send.
func (n *notifier) broadcast(msg Message) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for id, ch := range n.subs {
		select {
		case ch <- msg:
		default:
			n.hooks.MessageDropped(id, msg.Type)
			n.log.Debug("dropped message for slow subscriber",
				Fields{"sub_id": id, "type": msg.Type})
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
	}
}
