package offcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/peakready/offcache/codec"
	"github.com/peakready/offcache/internal/wire"
	"github.com/peakready/offcache/policy"
	"github.com/peakready/offcache/provider"
	"github.com/peakready/offcache/store"
)

const defaultFetchTimeout = 30 * time.Second

// degradedBody is the terminal offline contract the application layer handles
// as "offline, no data".
const degradedBody = `{"error": "Offline and no cached data available"}`

type worker struct {
	cfg     Config
	policy  *policy.Engine
	stores  *store.Registry
	fetcher Fetcher
	codec   codec.Codec[Response]
	log     Logger
	hooks   Hooks

	presenter Presenter
	clients   Clients

	notifier     *notifier
	fetchTimeout time.Duration

	mu    sync.Mutex
	state State
	shell *store.Store
	api   *store.Store

	// in-flight background revalidations; Close waits for them
	revalidations sync.WaitGroup
	closeOnce     sync.Once
	closed        chan struct{}

	provider provider.Provider
}

func newWorker(opts Options) (*worker, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("offcache: provider is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("offcache: fetcher is required")
	}
	if err := opts.Config.validate(); err != nil {
		return nil, err
	}

	cfg := opts.Config
	cfg.APIPrefix = coalesce(cfg.APIPrefix, "/api/")

	w := &worker{
		cfg:     cfg,
		fetcher: opts.Fetcher,
		policy: policy.New(policy.Config{
			APIPrefix: cfg.APIPrefix,
			Bypass:    cfg.BypassList,
			Allow:     cfg.AllowList,
		}),
		state:    StateNew,
		closed:   make(chan struct{}),
		provider: opts.Provider,
	}

	// defaults
	w.log = coalesce[Logger](opts.Logger, NopLogger{})
	w.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	w.fetchTimeout = coalesce(opts.FetchTimeout, defaultFetchTimeout)
	w.presenter = opts.Presenter
	w.clients = opts.Clients

	if opts.Codec != nil {
		w.codec = opts.Codec
	} else {
		cb, err := codec.NewCBOR[Response](false)
		if err != nil {
			return nil, err
		}
		w.codec = cb
	}

	w.notifier = newNotifier(w.log, w.hooks)

	reg, err := store.NewRegistry(context.Background(), opts.Provider)
	if err != nil {
		return nil, err
	}
	w.stores = reg

	api, err := reg.Open(context.Background(), cfg.apiStore())
	if err != nil {
		return nil, err
	}
	w.api = api

	return w, nil
}

func (w *worker) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("offcache: nil request")
	}
	if w.isClosed() {
		return nil, ErrClosed
	}

	// The logout path purges the API store before the request goes out,
	// whatever the method and whatever the network outcome. The response
	// always comes from the real network.
	if w.cfg.LogoutPath != "" && req.Path == w.cfg.LogoutPath {
		if err := w.purgeAPI(ctx); err != nil {
			w.log.Error("logout purge failed", Fields{"err": err})
		}
		return w.netFetch(ctx, req)
	}

	// An uncontrolled (not yet activated) worker never intercepts.
	if w.State() != StateActive {
		return w.netFetch(ctx, req)
	}

	switch w.policy.Classify(req.Method, req.Path, req.Destination) {
	case policy.ShellAsset:
		return w.cacheFirst(ctx, req)
	case policy.CacheableAPI:
		return w.staleWhileRevalidate(ctx, req)
	default:
		// bypass and uncacheable both resolve against the network; neither
		// reads nor writes any cache store
		return w.netFetch(ctx, req)
	}
}

// netFetch bounds every network call with the configured timeout.
func (w *worker) netFetch(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()
	return w.fetcher.Do(ctx, req)
}

// cacheFirst serves shell assets: a cached entry short-circuits the network
// entirely; a miss fetches, persists a copy on HTTP ok, and returns the
// network response. Network errors propagate - shell assets have no offline
// stub.
func (w *worker) cacheFirst(ctx context.Context, req *Request) (*Response, error) {
	st := w.shellStoreNow()
	if st != nil {
		if resp, ok := w.readEntry(ctx, st, req.Key(), wire.KindShell); ok {
			return resp, nil
		}
	}

	resp, err := w.netFetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.OK() && st != nil {
		w.writeEntry(ctx, st, req.Key(), wire.KindShell, resp)
	}
	return resp, nil
}

// staleWhileRevalidate serves allow-listed API reads. A cached entry is
// returned immediately while a background fetch refreshes it for next time
// and emits SYNC_UPDATE; a miss waits on the network, falling back to a
// second cache read for offline-critical paths and finally to the synthetic
// 503 offline response.
func (w *worker) staleWhileRevalidate(ctx context.Context, req *Request) (*Response, error) {
	cached, ok := w.readEntry(ctx, w.api, req.Key(), wire.KindAPI)
	if ok {
		w.revalidations.Add(1)
		go func() {
			defer w.revalidations.Done()
			// Fire and forget, but not truly orphaned: the result is used
			// for its side effects and errors stop here.
			bg, cancel := context.WithTimeout(context.Background(), w.fetchTimeout)
			defer cancel()
			if _, err := w.revalidate(bg, req, true); err != nil {
				w.hooks.RevalidateFailed(req.Path, err)
				w.log.Debug("background revalidation failed",
					Fields{"path": req.Path, "err": err})
			}
		}()
		return cached, nil
	}

	resp, err := w.revalidate(ctx, req, false)
	if err == nil {
		return resp, nil
	}

	if w.cfg.offlineCritical(req.Path) {
		// covers the race where another fetch wrote the entry between the
		// first read and the network failure
		if late, ok := w.readEntry(ctx, w.api, req.Key(), wire.KindAPI); ok {
			return late, nil
		}
	}

	w.hooks.DegradedServed(req.Path)
	w.log.Warn("serving degraded offline response", Fields{"path": req.Path, "err": err})
	return degradedResponse(), nil
}

// revalidate performs the network fetch for a cacheable API read and, on
// HTTP ok, persists the response. notify additionally emits SYNC_UPDATE with
// the capture time; the foreground miss path skips it since the caller is
// about to receive the fresh data anyway.
func (w *worker) revalidate(ctx context.Context, req *Request, notify bool) (*Response, error) {
	resp, err := w.netFetch(ctx, req)
	if err != nil {
		return nil, err
	}
	capturedAt := time.Now().UTC()
	if !resp.OK() {
		return resp, nil
	}
	w.writeEntry(ctx, w.api, req.Key(), wire.KindAPI, resp)
	if notify {
		w.notifier.broadcast(Message{
			Type:      MessageSyncUpdate,
			Timestamp: capturedAt.Format(time.RFC3339),
			Path:      req.Path,
		})
	}
	return resp, nil
}

func degradedResponse() *Response {
	return &Response{
		Status: 503,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   []byte(degradedBody),
	}
}

// readEntry decodes a stored response. Corrupt frames, role mismatches and
// undecodable payloads are self-healed: the entry is deleted and the read is
// a miss.
func (w *worker) readEntry(ctx context.Context, st *store.Store, key string, kind byte) (*Response, bool) {
	raw, ok, err := st.Get(ctx, key)
	if err != nil {
		w.log.Warn("cache read error", Fields{"store": st.Name(), "key": key, "err": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}

	gotKind, _, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		w.selfHeal(ctx, st, key, "corrupt")
		return nil, false
	}
	if gotKind != kind {
		w.selfHeal(ctx, st, key, "role_mismatch")
		return nil, false
	}
	resp, err := w.codec.Decode(payload)
	if err != nil {
		w.selfHeal(ctx, st, key, "value_decode")
		return nil, false
	}
	return &resp, true
}

func (w *worker) selfHeal(ctx context.Context, st *store.Store, key, reason string) {
	_ = st.Delete(ctx, key)
	w.hooks.SelfHeal(st.Name(), key, reason)
	w.log.Debug("self-healed cache entry",
		Fields{"store": st.Name(), "key": key, "reason": reason})
}

// writeEntry persists a copy of resp. Write failures are logged, never
// surfaced: the caller already holds the response it needs.
func (w *worker) writeEntry(ctx context.Context, st *store.Store, key string, kind byte, resp *Response) {
	payload, err := w.codec.Encode(*resp.Clone())
	if err != nil {
		w.log.Error("cache encode failed", Fields{"store": st.Name(), "key": key, "err": err})
		return
	}
	ok, err := st.Put(ctx, key, wire.EncodeEntry(kind, time.Now().UTC(), payload))
	if err != nil {
		w.log.Error("cache write failed", Fields{"store": st.Name(), "key": key, "err": err})
		return
	}
	if !ok {
		w.hooks.CacheWriteRejected(st.Name(), key)
		w.log.Debug("cache write rejected by provider", Fields{"store": st.Name(), "key": key})
	}
}

// purgeAPI deletes every API-store entry whose path is under the API prefix.
func (w *worker) purgeAPI(ctx context.Context) error {
	var errs []error
	for _, key := range w.api.Keys() {
		if !keyUnderPrefix(key, w.cfg.APIPrefix) {
			continue
		}
		if err := w.api.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return &PurgeError{Store: w.api.Name(), Errs: errs}
	}
	return nil
}

// keyUnderPrefix checks the path component of an entry key ("<METHOD> <path>").
func keyUnderPrefix(key, prefix string) bool {
	_, path, found := strings.Cut(key, " ")
	return found && strings.HasPrefix(path, prefix)
}

func (w *worker) Post(ctx context.Context, msg Message) error {
	if w.isClosed() {
		return ErrClosed
	}
	switch msg.Type {
	case MessageClearUserCache:
		if err := w.purgeAPI(ctx); err != nil {
			return err
		}
		w.log.Info("user cache cleared", Fields{"store": w.api.Name()})
		w.notifier.broadcast(Message{Type: MessageCacheCleared})
		return nil
	default:
		return fmt.Errorf("offcache: unsupported inbound message type %q", msg.Type)
	}
}

func (w *worker) Subscribe(ctx context.Context) (<-chan Message, string) {
	return w.notifier.subscribe(ctx)
}

func (w *worker) Unsubscribe(id string) {
	w.notifier.unsubscribe(id)
}

func (w *worker) shellStoreNow() *store.Store {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shell
}

func (w *worker) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}

func (w *worker) Close(ctx context.Context) error {
	w.closeOnce.Do(func() { close(w.closed) })

	done := make(chan struct{})
	go func() {
		w.revalidations.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.notifier.closeAll()
	if w.provider != nil {
		return w.provider.Close(ctx)
	}
	return nil
}
