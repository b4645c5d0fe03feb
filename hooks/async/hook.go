// Package asynchook decouples hook callbacks from the worker's hot paths:
// events are queued to a bounded channel and run on background workers, and
// get dropped rather than blocking when the queue is full.
//
// usage:
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	w, _ := offcache.New(offcache.Options{
//	    Config:   cfg,
//	    Provider: provider,
//	    Fetcher:  fetcher,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/peakready/offcache"
)

type Hooks struct {
	inner offcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ offcache.Hooks = (*Hooks)(nil)

func New(inner offcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SelfHeal(store, key, reason string) {
	h.try(func() { h.inner.SelfHeal(store, key, reason) })
}
func (h *Hooks) CacheWriteRejected(store, key string) {
	h.try(func() { h.inner.CacheWriteRejected(store, key) })
}
func (h *Hooks) RevalidateFailed(path string, err error) {
	h.try(func() { h.inner.RevalidateFailed(path, err) })
}
func (h *Hooks) DegradedServed(path string) {
	h.try(func() { h.inner.DegradedServed(path) })
}
func (h *Hooks) InstallAssetFailed(version, asset string, err error) {
	h.try(func() { h.inner.InstallAssetFailed(version, asset, err) })
}
func (h *Hooks) MessageDropped(subID string, mt offcache.MessageType) {
	h.try(func() { h.inner.MessageDropped(subID, mt) })
}
