package offcache

import (
	"context"
	"fmt"
)

// EventKind names the events a host can route to the worker.
type EventKind string

const (
	EventInstall           EventKind = "install"
	EventActivate          EventKind = "activate"
	EventFetch             EventKind = "fetch"
	EventMessage           EventKind = "message"
	EventPush              EventKind = "push"
	EventNotificationClick EventKind = "notificationclick"
)

// Event is one host event. Exactly the field matching Kind is read.
type Event struct {
	Kind         EventKind
	Request      *Request      // fetch
	Message      *Message      // message
	PushData     []byte        // push
	Notification *Notification // notificationclick
}

// HandlerFunc handles one event. Dispatch returns only after the handler
// completes, which is how the host extends an event's lifetime until the
// work behind it is done.
type HandlerFunc func(ctx context.Context, ev Event) (*Response, error)

// Dispatcher routes events to worker handlers through a dispatch table keyed
// by event kind. Only Fetch produces a response; the other kinds return nil.
type Dispatcher struct {
	handlers map[EventKind]HandlerFunc
}

func NewDispatcher(w Worker) *Dispatcher {
	return &Dispatcher{handlers: map[EventKind]HandlerFunc{
		EventInstall: func(ctx context.Context, _ Event) (*Response, error) {
			return nil, w.Install(ctx)
		},
		EventActivate: func(ctx context.Context, _ Event) (*Response, error) {
			return nil, w.Activate(ctx)
		},
		EventFetch: func(ctx context.Context, ev Event) (*Response, error) {
			return w.Fetch(ctx, ev.Request)
		},
		EventMessage: func(ctx context.Context, ev Event) (*Response, error) {
			if ev.Message == nil {
				return nil, fmt.Errorf("offcache: message event without message")
			}
			return nil, w.Post(ctx, *ev.Message)
		},
		EventPush: func(ctx context.Context, ev Event) (*Response, error) {
			return nil, w.HandlePush(ctx, ev.PushData)
		},
		EventNotificationClick: func(ctx context.Context, ev Event) (*Response, error) {
			if ev.Notification == nil {
				return nil, fmt.Errorf("offcache: notificationclick event without notification")
			}
			return nil, w.HandleNotificationClick(ctx, *ev.Notification)
		},
	}}
}

// Dispatch runs the handler registered for ev.Kind and waits for it to
// finish. Unknown kinds are an error, not a silent drop.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (*Response, error) {
	h, ok := d.handlers[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("offcache: unknown event kind %q", ev.Kind)
	}
	return h(ctx, ev)
}
