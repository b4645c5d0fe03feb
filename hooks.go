package offcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The worker calls them on hot paths.
type Hooks interface {
	// A cache entry was deleted by the worker on read.
	// reason ∈ {"corrupt", "role_mismatch", "value_decode"}
	SelfHeal(storeName, key, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	CacheWriteRejected(storeName, key string)

	// Background revalidation of a cacheable API path failed.
	// The caller already got the cached response; this is the only trace.
	RevalidateFailed(path string, err error)

	// The synthesized 503 offline response was served for path.
	DegradedServed(path string)

	// One manifest asset failed during install. Install aborts after this.
	InstallAssetFailed(version, asset string, err error)

	// A broadcast message was dropped for a slow subscriber.
	MessageDropped(subID string, mt MessageType)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string, string)          {}
func (NopHooks) CacheWriteRejected(string, string)        {}
func (NopHooks) RevalidateFailed(string, error)           {}
func (NopHooks) DegradedServed(string)                    {}
func (NopHooks) InstallAssetFailed(string, string, error) {}
func (NopHooks) MessageDropped(string, MessageType)       {}
