// Package offcache implements the offline caching and synchronization engine
// behind an installable training-tracking web app. It decides what gets
// cached, how cached responses are served relative to the network, how
// staleness is signalled back to open application instances, and how caches
// are invalidated across versions and account changes.
//
// Components:
//   - Provider: byte store holding cache entries (e.g. Memory, Ristretto, BigCache, Redis).
//   - Codec[Response]: (de)serializes captured responses <-> []byte.
//   - policy.Engine: pure request classification (bypass / shell asset / cacheable API).
//   - store.Registry: named, versioned cache stores with enumerable keys over a Provider.
//   - Worker: the engine itself: install/activate lifecycle, fetch strategies
//     (cache-first, stale-while-revalidate, passthrough), cross-context messages,
//     push delivery.
//
// Keys:
//
//	stores                   - registry of live store names
//	index:<store>            - key index of one store
//	entry:<store>:<req-key>  - one cached response ("<METHOD> <path>")
//
// Typical host wiring:
//
//	w, _ := offcache.New(offcache.Options{
//	    Config:   cfg,                       // version, manifest, allow/bypass lists
//	    Provider: memory.New(),
//	    Fetcher:  &offcache.HTTPFetcher{Base: origin},
//	})
//	_ = w.Install(ctx)
//	_ = w.Activate(ctx)
//	resp, _ := w.Fetch(ctx, &offcache.Request{Method: "GET", Path: "/api/sessions"})
package offcache
