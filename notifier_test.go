package offcache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type dropRecorder struct {
	NopHooks
	mu      sync.Mutex
	dropped []string
}

func (h *dropRecorder) MessageDropped(subID string, t MessageType) {
	h.mu.Lock()
	h.dropped = append(h.dropped, subID+"/"+string(t))
	h.mu.Unlock()
}

func TestNotifierFanOutPreservesOrder(t *testing.T) {
	n := newNotifier(NopLogger{}, NopHooks{})
	defer n.closeAll()

	a, _ := n.subscribe(context.Background())
	b, _ := n.subscribe(context.Background())

	for i := 0; i < 5; i++ {
		n.broadcast(Message{Type: MessageSyncUpdate, Path: fmt.Sprintf("/api/x/%d", i)})
	}
	for _, ch := range []<-chan Message{a, b} {
		for i := 0; i < 5; i++ {
			m := waitMsg(t, ch)
			if want := fmt.Sprintf("/api/x/%d", i); m.Path != want {
				t.Fatalf("path = %q, want %q", m.Path, want)
			}
		}
	}
}

// A subscriber that stops draining loses messages without blocking the
// broadcaster or the other subscribers.
func TestNotifierDropsForSlowSubscriber(t *testing.T) {
	hooks := &dropRecorder{}
	n := newNotifier(NopLogger{}, hooks)
	defer n.closeAll()

	slow, slowID := n.subscribe(context.Background())

	// fill the slow subscriber's buffer exactly; nothing drops yet
	for i := 0; i < subscriberBuffer; i++ {
		n.broadcast(Message{Type: MessageSyncUpdate, Path: fmt.Sprintf("/api/x/%d", i)})
	}

	// with slow full, further broadcasts drop for it but still reach others
	fast, _ := n.subscribe(context.Background())
	for i := 0; i < 3; i++ {
		n.broadcast(Message{Type: MessageSyncUpdate, Path: fmt.Sprintf("/api/late/%d", i)})
	}

	hooks.mu.Lock()
	drops := append([]string(nil), hooks.dropped...)
	hooks.mu.Unlock()
	if len(drops) != 3 {
		t.Fatalf("drops = %v, want 3 entries", drops)
	}
	for _, d := range drops {
		if want := slowID + "/" + string(MessageSyncUpdate); d != want {
			t.Fatalf("drop = %q, want %q", d, want)
		}
	}

	// the slow subscriber keeps its buffered prefix, in order
	if m := waitMsg(t, slow); m.Path != "/api/x/0" {
		t.Fatalf("slow head = %q", m.Path)
	}
	// the fast one saw only what was broadcast after it subscribed
	for i := 0; i < 3; i++ {
		if m := waitMsg(t, fast); m.Path != fmt.Sprintf("/api/late/%d", i) {
			t.Fatalf("fast message #%d = %q", i, m.Path)
		}
	}
}

func TestNotifierUnsubscribeClosesChannel(t *testing.T) {
	n := newNotifier(NopLogger{}, NopHooks{})
	defer n.closeAll()

	ch, id := n.subscribe(context.Background())
	n.unsubscribe(id)
	if _, open := <-ch; open {
		t.Fatalf("channel still open after unsubscribe")
	}
	// idempotent
	n.unsubscribe(id)
	// a broadcast after unsubscribe must not panic
	n.broadcast(Message{Type: MessageCacheCleared})
}

func TestNotifierContextCancelUnsubscribes(t *testing.T) {
	n := newNotifier(NopLogger{}, NopHooks{})
	defer n.closeAll()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := n.subscribe(ctx)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed after context cancel")
		}
	}
}
