package offcache

import (
	"context"
	"testing"

	"github.com/peakready/offcache/provider/memory"
)

// The dispatch table drives the full lifecycle and returns a response only for
// fetch events.
func TestDispatcherRoutesLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher()
	f.route("/api/sessions", staticRoute(200, `{"sessions":[]}`))
	w := newTestWorker(t, memory.New(), f, nil)
	d := NewDispatcher(w)

	if resp, err := d.Dispatch(ctx, Event{Kind: EventInstall}); err != nil || resp != nil {
		t.Fatalf("install: %v %v", resp, err)
	}
	if resp, err := d.Dispatch(ctx, Event{Kind: EventActivate}); err != nil || resp != nil {
		t.Fatalf("activate: %v %v", resp, err)
	}
	if got := w.State(); got != StateActive {
		t.Fatalf("state = %v, want active", got)
	}

	resp, err := d.Dispatch(ctx, Event{
		Kind:    EventFetch,
		Request: &Request{Method: "GET", Path: "/api/sessions"},
	})
	if err != nil || string(resp.Body) != `{"sessions":[]}` {
		t.Fatalf("fetch: %v %q", err, resp.Body)
	}

	if _, err := d.Dispatch(ctx, Event{
		Kind:    EventMessage,
		Message: &Message{Type: MessageClearUserCache},
	}); err != nil {
		t.Fatalf("message: %v", err)
	}
	if keys := mustImpl(t, w).api.Keys(); len(keys) != 0 {
		t.Fatalf("message event did not clear the api store: %v", keys)
	}
}

func TestDispatcherPushAndClick(t *testing.T) {
	ctx := context.Background()
	pr := &fakePresenter{}
	cl := &fakeClients{}
	w := newTestWorker(t, memory.New(), newFakeFetcher(), func(o *Options) {
		o.Presenter = pr
		o.Clients = cl
	})
	d := NewDispatcher(w)

	if _, err := d.Dispatch(ctx, Event{
		Kind:     EventPush,
		PushData: []byte(`{"title":"Synced"}`),
	}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got := pr.last(t); got.Title != "Synced" {
		t.Fatalf("shown = %+v", got)
	}

	if _, err := d.Dispatch(ctx, Event{
		Kind:         EventNotificationClick,
		Notification: &Notification{URL: "/sessions/1"},
	}); err != nil {
		t.Fatalf("notificationclick: %v", err)
	}
	if len(cl.opened) != 1 || cl.opened[0] != "/sessions/1" {
		t.Fatalf("opened = %v", cl.opened)
	}
}

func TestDispatcherRejectsMalformedEvents(t *testing.T) {
	ctx := context.Background()
	w := newTestWorker(t, memory.New(), newFakeFetcher(), nil)
	d := NewDispatcher(w)

	if _, err := d.Dispatch(ctx, Event{Kind: "sync"}); err == nil {
		t.Fatalf("unknown kind must error")
	}
	if _, err := d.Dispatch(ctx, Event{Kind: EventMessage}); err == nil {
		t.Fatalf("message event without message must error")
	}
	if _, err := d.Dispatch(ctx, Event{Kind: EventNotificationClick}); err == nil {
		t.Fatalf("notificationclick without notification must error")
	}
}
