package offcache

import (
	"context"
	"time"

	c "github.com/peakready/offcache/codec"
	pr "github.com/peakready/offcache/provider"
)

// Worker is the offline caching and synchronization engine. One Worker
// instance corresponds to one installed version of the application.
type Worker interface {
	// Install pre-populates the shell cache for this version. All-or-nothing:
	// any manifest asset failure aborts with *InstallError and the version
	// never activates.
	Install(ctx context.Context) error

	// Activate garbage-collects stores from prior versions and starts
	// intercepting fetches. Only legal after a successful Install.
	Activate(ctx context.Context) error

	// State reports the lifecycle state.
	State() State

	// Fetch resolves one application request through the configured strategy:
	// cache-first for shell assets, stale-while-revalidate for allow-listed
	// API reads, plain network for everything else. Before activation, every
	// request passes through to the network unintercepted.
	Fetch(ctx context.Context, req *Request) (*Response, error)

	// Post delivers an inbound application message to the worker.
	// CLEAR_USER_CACHE purges the API store synchronously and then emits
	// CACHE_CLEARED; callers can rely on the purge being done when Post
	// returns.
	Post(ctx context.Context, msg Message) error

	// Subscribe registers an application instance for outbound messages
	// (SYNC_UPDATE, CACHE_CLEARED). Delivery is best-effort and ordered per
	// subscriber. The subscription ends when ctx is cancelled or Unsubscribe
	// is called with the returned id.
	Subscribe(ctx context.Context) (<-chan Message, string)
	Unsubscribe(id string)

	// HandlePush parses an optional JSON push payload (defaults apply when it
	// is absent or invalid) and presents a notification.
	HandlePush(ctx context.Context, payload []byte) error

	// HandleNotificationClick routes a notification tap to the first
	// focusable open window, or opens a new one at the deep link.
	HandleNotificationClick(ctx context.Context, n Notification) error

	// Close waits for in-flight background revalidations, drops subscribers
	// and releases the provider.
	Close(ctx context.Context) error
}

// Options tune the worker. Config, Provider and Fetcher are required; others
// have sensible defaults.
type Options struct {
	// Required
	Config   Config
	Provider pr.Provider
	Fetcher  Fetcher

	Codec        c.Codec[Response] // nil => CBOR
	Logger       Logger            // nil => NopLogger
	Hooks        Hooks             // nil => NopHooks
	FetchTimeout time.Duration     // bound on every network call; 0 => 30s

	// Push collaborators. Optional; leaving them nil makes HandlePush and
	// HandleNotificationClick report ErrNoPresenter / ErrNoClients.
	Presenter Presenter
	Clients   Clients
}

func New(opts Options) (Worker, error) {
	return newWorker(opts)
}
