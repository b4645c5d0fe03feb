// Package store layers named, enumerable cache stores on top of a flat
// provider byte store. A Registry tracks which stores exist (persisted under
// a reserved provider key, so durable providers survive worker restarts);
// each Store keeps a persisted index of its keys so activation-time garbage
// collection and prefix purges can enumerate entries even on providers that
// cannot iterate.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/peakready/offcache/provider"
)

const (
	registryKey = "stores"
	indexPrefix = "index:"
	entryPrefix = "entry:"
)

func indexKey(name string) string { return indexPrefix + name }

func entryKey(name, key string) string { return entryPrefix + name + ":" + key }

// Registry tracks the set of live stores over one provider.
type Registry struct {
	p provider.Provider

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry opens a registry, loading any persisted store set from the
// provider. A corrupt registry record is reset to empty rather than failing
// startup.
func NewRegistry(ctx context.Context, p provider.Provider) (*Registry, error) {
	if p == nil {
		return nil, fmt.Errorf("store: provider is required")
	}
	r := &Registry{p: p, stores: make(map[string]*Store)}

	raw, ok, err := p.Get(ctx, registryKey)
	if err != nil {
		return nil, fmt.Errorf("store: load registry: %w", err)
	}
	if ok {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			_ = p.Del(ctx, registryKey) // self-heal corrupt registry
		} else {
			for _, name := range names {
				s, err := loadStore(ctx, p, name)
				if err != nil {
					return nil, err
				}
				r.stores[name] = s
			}
		}
	}
	return r, nil
}

// Open returns the named store, creating and persisting it if absent.
func (r *Registry) Open(ctx context.Context, name string) (*Store, error) {
	if name == "" {
		return nil, fmt.Errorf("store: name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[name]; ok {
		return s, nil
	}
	s := &Store{name: name, p: r.p, keys: make(map[string]struct{})}
	r.stores[name] = s
	if err := r.persistLocked(ctx); err != nil {
		delete(r.stores, name)
		return nil, err
	}
	return s, nil
}

// Names returns a sorted snapshot of live store names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.stores))
	for name := range r.stores {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Drop deletes a store wholesale: every entry, its index, and its registry
// record. Dropping an unknown name is a no-op.
func (r *Registry) Drop(ctx context.Context, name string) error {
	r.mu.Lock()
	s, ok := r.stores[name]
	if ok {
		delete(r.stores, name)
	}
	err := r.persistLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return s.Clear(ctx)
}

func (r *Registry) persistLocked(ctx context.Context) error {
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if _, err := r.p.Set(ctx, registryKey, raw, int64(len(raw)), 0); err != nil {
		return fmt.Errorf("store: persist registry: %w", err)
	}
	return nil
}

// Store is one named cache store. Entries are addressed by exact request key;
// the key index makes them enumerable.
type Store struct {
	name string
	p    provider.Provider

	mu   sync.Mutex
	keys map[string]struct{}
}

func loadStore(ctx context.Context, p provider.Provider, name string) (*Store, error) {
	s := &Store{name: name, p: p, keys: make(map[string]struct{})}
	raw, ok, err := p.Get(ctx, indexKey(name))
	if err != nil {
		return nil, fmt.Errorf("store: load index %q: %w", name, err)
	}
	if ok {
		var keys []string
		if err := json.Unmarshal(raw, &keys); err != nil {
			_ = p.Del(ctx, indexKey(name)) // self-heal corrupt index
		} else {
			for _, k := range keys {
				s.keys[k] = struct{}{}
			}
		}
	}
	return s, nil
}

func (s *Store) Name() string { return s.name }

// Get returns the bytes stored under key. A provider-side eviction is an
// ordinary miss; the stale index record is pruned on the way.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := s.p.Get(ctx, entryKey(s.name, key))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		s.mu.Lock()
		if _, indexed := s.keys[key]; indexed {
			delete(s.keys, key)
			_ = s.persistIndexLocked(ctx)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return raw, true, nil
}

// Put stores value under key, overwriting any prior entry. ok=false means the
// provider rejected the write under pressure; the entry is simply not cached.
func (s *Store) Put(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := s.p.Set(ctx, entryKey(s.name, key), value, int64(len(value)), 0)
	if err != nil || !ok {
		return ok, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key]; !exists {
		s.keys[key] = struct{}{}
		if err := s.persistIndexLocked(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Delete removes one entry and its index record.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.p.Del(ctx, entryKey(s.name, key)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key]; exists {
		delete(s.keys, key)
		return s.persistIndexLocked(ctx)
	}
	return nil
}

// Keys returns a sorted snapshot of the store's keys.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clear removes every entry and the index itself. Individual delete failures
// do not stop the sweep; the first error is reported after it finishes.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.keys = make(map[string]struct{})
	s.mu.Unlock()

	var first error
	for _, k := range keys {
		if err := s.p.Del(ctx, entryKey(s.name, k)); err != nil && first == nil {
			first = err
		}
	}
	if err := s.p.Del(ctx, indexKey(s.name)); err != nil && first == nil {
		first = err
	}
	return first
}

func (s *Store) persistIndexLocked(ctx context.Context) error {
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	if _, err := s.p.Set(ctx, indexKey(s.name), raw, int64(len(raw)), 0); err != nil {
		return fmt.Errorf("store: persist index %q: %w", s.name, err)
	}
	return nil
}
