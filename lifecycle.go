package offcache

import (
	"context"
	"fmt"
	"net/http"

	"github.com/peakready/offcache/internal/wire"
	"github.com/peakready/offcache/policy"
)

// State is the worker lifecycle state. A fresh worker is New; a successful
// Install moves it straight to Waiting (this worker takes control without
// waiting for old instances to close); Activate makes it serve fetches.
type State int

const (
	StateNew State = iota
	StateInstalling
	StateWaiting
	StateActive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (w *worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Install opens this version's shell store and pre-populates it with the
// fixed asset manifest. All-or-nothing: the first asset that cannot be
// fetched and cached aborts the install, drops the partial store, and leaves
// the worker Failed; the version never activates. A Failed worker may retry.
func (w *worker) Install(ctx context.Context) error {
	if w.isClosed() {
		return ErrClosed
	}
	w.mu.Lock()
	if w.state != StateNew && w.state != StateFailed {
		st := w.state
		w.mu.Unlock()
		return fmt.Errorf("offcache: install from state %q", st)
	}
	w.state = StateInstalling
	w.mu.Unlock()

	shell, err := w.stores.Open(ctx, w.cfg.shellStore())
	if err != nil {
		w.setState(StateFailed)
		return err
	}

	for _, asset := range w.cfg.ShellManifest {
		req := &Request{Method: http.MethodGet, Path: asset, Destination: policy.DestNone}
		resp, err := w.netFetch(ctx, req)
		if err == nil && !resp.OK() {
			err = fmt.Errorf("unexpected status %d", resp.Status)
		}
		if err != nil {
			w.hooks.InstallAssetFailed(w.cfg.Version, asset, err)
			w.log.Error("install aborted",
				Fields{"version": w.cfg.Version, "asset": asset, "err": err})
			_ = shell.Clear(ctx) // drop the partially populated store
			w.setState(StateFailed)
			return &InstallError{Version: w.cfg.Version, Asset: asset, Err: err}
		}
		w.writeEntry(ctx, shell, req.Key(), wire.KindShell, resp)
	}

	w.mu.Lock()
	w.shell = shell
	w.state = StateWaiting
	w.mu.Unlock()

	w.log.Info("installed",
		Fields{"version": w.cfg.Version, "assets": len(w.cfg.ShellManifest)})
	return nil
}

// Activate garbage-collects every store that belongs to this application but
// not to this version, then takes control: from here on Fetch intercepts. A
// cleanup failure aborts activation (the worker stays Waiting) so a retry
// re-runs the collection rather than silently skipping it.
func (w *worker) Activate(ctx context.Context) error {
	if w.isClosed() {
		return ErrClosed
	}
	w.mu.Lock()
	if w.state != StateWaiting {
		st := w.state
		w.mu.Unlock()
		return fmt.Errorf("offcache: activate from state %q", st)
	}
	w.mu.Unlock()

	current := map[string]bool{
		w.cfg.shellStore(): true,
		w.cfg.apiStore():   true,
	}
	for _, name := range w.stores.Names() {
		if !ownedStore(name) || current[name] {
			continue
		}
		if err := w.stores.Drop(ctx, name); err != nil {
			return fmt.Errorf("offcache: activate: drop stale store %q: %w", name, err)
		}
		w.log.Info("dropped stale cache store", Fields{"store": name})
	}

	w.setState(StateActive)
	w.log.Info("activated", Fields{"version": w.cfg.Version})
	return nil
}

func (w *worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
