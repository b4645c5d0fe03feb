package offcache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/peakready/offcache/provider/memory"
)

// A failed asset fetch aborts the install, drops the partial shell store, and
// leaves the worker Failed so it never activates.
func TestInstallAllOrNothing(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	f := newFakeFetcher()
	f.route("/icons/icon-192.png", failRoute(errNetwork))
	w := newTestWorker(t, p, f, nil)

	err := w.Install(ctx)
	var ie *InstallError
	if !errors.As(err, &ie) {
		t.Fatalf("Install err = %v, want *InstallError", err)
	}
	if ie.Asset != "/icons/icon-192.png" || ie.Version != "v1" {
		t.Fatalf("InstallError = %+v", ie)
	}
	if got := w.State(); got != StateFailed {
		t.Fatalf("state = %v, want failed", got)
	}
	if err := w.Activate(ctx); err == nil {
		t.Fatalf("Activate must refuse a failed worker")
	}
	// nothing of the partial shell store survives
	for key := range providerKeys(p) {
		if strings.HasPrefix(key, "entry:shell-v1:") {
			t.Fatalf("partial shell entry survived: %q", key)
		}
	}
}

// A Failed worker may retry Install once the network recovers.
func TestInstallRetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher()
	f.route("/", failRoute(errNetwork))
	w := newTestWorker(t, memory.New(), f, nil)

	if err := w.Install(ctx); err == nil {
		t.Fatalf("first Install should fail")
	}

	f.route("/", staticRoute(200, `<!doctype html>`))
	if err := w.Install(ctx); err != nil {
		t.Fatalf("retry Install: %v", err)
	}
	if got := w.State(); got != StateWaiting {
		t.Fatalf("state = %v, want waiting", got)
	}
	if err := w.Activate(ctx); err != nil {
		t.Fatalf("Activate: %v", err)
	}
}

// Install writes a non-ok manifest response nowhere and fails the install.
func TestInstallRejectsNonOKAsset(t *testing.T) {
	f := newFakeFetcher()
	f.route("/manifest.webmanifest", staticRoute(404, `not found`))
	w := newTestWorker(t, memory.New(), f, nil)

	err := w.Install(context.Background())
	var ie *InstallError
	if !errors.As(err, &ie) {
		t.Fatalf("Install err = %v, want *InstallError", err)
	}
	if ie.Asset != "/manifest.webmanifest" {
		t.Fatalf("failing asset = %q", ie.Asset)
	}
}

func TestLifecycleStateOrder(t *testing.T) {
	ctx := context.Background()
	w := newTestWorker(t, memory.New(), newFakeFetcher(), nil)

	if got := w.State(); got != StateNew {
		t.Fatalf("initial state = %v", got)
	}
	if err := w.Activate(ctx); err == nil {
		t.Fatalf("Activate before Install must fail")
	}
	if err := w.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := w.Install(ctx); err == nil {
		t.Fatalf("double Install must fail")
	}
	if err := w.Activate(ctx); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if got := w.State(); got != StateActive {
		t.Fatalf("state = %v, want active", got)
	}
	if err := w.Activate(ctx); err == nil {
		t.Fatalf("double Activate must fail")
	}
}

// Activating a new version over a shared provider drops every store owned by
// the old version while leaving foreign keys alone.
func TestActivateCollectsStaleVersions(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	f := newFakeFetcher()

	old := newTestWorker(t, p, f, func(o *Options) {
		cfg := testConfig()
		cfg.Version = "2025.1"
		o.Config = cfg
	})
	installActivate(t, old)
	if _, err := old.Fetch(ctx, &Request{Method: "GET", Path: "/api/sessions"}); err != nil {
		t.Fatalf("seed old version: %v", err)
	}

	// a key outside the engine's naming scheme must survive the collection
	if _, err := p.Set(ctx, "unrelated:key", []byte("x"), 1, 0); err != nil {
		t.Fatalf("plant foreign key: %v", err)
	}

	next := newTestWorker(t, p, f, func(o *Options) {
		cfg := testConfig()
		cfg.Version = "2025.2"
		o.Config = cfg
	})
	installActivate(t, next)

	names := mustImpl(t, next).stores.Names()
	want := []string{"api-2025.2", "shell-2025.2"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("surviving stores = %v, want %v", names, want)
	}
	for key := range providerKeys(p) {
		if strings.Contains(key, "2025.1") {
			t.Fatalf("stale version key survived activation: %q", key)
		}
	}
	if _, ok, _ := p.Get(ctx, "unrelated:key"); !ok {
		t.Fatalf("foreign key was dropped")
	}
}

// providerKeys snapshots the raw keyspace of a memory provider.
func providerKeys(p *memory.Provider) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, k := range p.Keys() {
		keys[k] = struct{}{}
	}
	return keys
}
