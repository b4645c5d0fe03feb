package offcache

import (
	"context"
	"encoding/json"
)

// Defaults shown when a push event arrives without a readable payload.
const (
	defaultPushTitle = "PeakReady"
	defaultPushBody  = "Open the app to see what's new."
	defaultPushURL   = "/"
)

// PushPayload is the optional JSON body of a push event. All fields are
// optional; defaults apply per field.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// Notification is what gets displayed. URL is the deep link a tap navigates
// to; Tag de-duplicates: re-showing with the same tag replaces the prior
// notification rather than stacking.
type Notification struct {
	Title string
	Body  string
	URL   string
	Tag   string
}

// Presenter displays notifications. Implemented by the host platform.
type Presenter interface {
	Show(ctx context.Context, n Notification) error
}

// WindowClient is one open application window.
type WindowClient interface {
	// Focus brings the window to the foreground. An error means the window
	// cannot be focused.
	Focus(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
}

// Clients enumerates open application windows. List order is the host's
// enumeration order; the click handler takes the snapshot as-is.
type Clients interface {
	List(ctx context.Context) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) error
}

// HandlePush parses the optional payload and presents a notification. An
// absent or unreadable payload never drops the notification; the fixed
// defaults are shown instead.
func (w *worker) HandlePush(ctx context.Context, payload []byte) error {
	if w.presenter == nil {
		return ErrNoPresenter
	}

	n := Notification{Title: defaultPushTitle, Body: defaultPushBody, URL: defaultPushURL}
	if len(payload) > 0 {
		var p PushPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			w.log.Warn("unreadable push payload, using defaults", Fields{"err": err})
		} else {
			n.Title = coalesce(p.Title, n.Title)
			n.Body = coalesce(p.Body, n.Body)
			n.URL = coalesce(p.URL, n.URL)
			n.Tag = p.Tag
		}
	}
	return w.presenter.Show(ctx, n)
}

// HandleNotificationClick routes a tap to the deep link. Exactly one window
// is targeted: the first client in the snapshot that can be focused wins; if
// none can, a new window opens at the URL.
func (w *worker) HandleNotificationClick(ctx context.Context, n Notification) error {
	if w.clients == nil {
		return ErrNoClients
	}
	url := coalesce(n.URL, defaultPushURL)

	list, err := w.clients.List(ctx)
	if err != nil {
		w.log.Warn("window enumeration failed, opening new window", Fields{"err": err})
		list = nil
	}
	for _, c := range list {
		if err := c.Focus(ctx); err != nil {
			continue // not focusable; try the next one
		}
		return c.Navigate(ctx, url)
	}
	return w.clients.OpenWindow(ctx, url)
}
