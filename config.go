package offcache

import (
	"fmt"
	"strings"
)

const (
	shellRole = "shell"
	apiRole   = "api"
)

// Config is the fixed, build-time configuration of the worker. It is injected
// once at construction and never mutated afterwards; tests supply their own
// manifests and lists.
type Config struct {
	// Version is the opaque tag distinguishing cache store generations.
	// Bumping it is the only mechanism for full shell-cache invalidation.
	Version string

	// ShellManifest lists the asset paths pre-populated at install time
	// (app shell document, manifest file, icons). All-or-nothing.
	ShellManifest []string

	// APIPrefix roots the read API. Requests under it are never treated as
	// shell assets, and CLEAR_USER_CACHE purges only entries under it.
	// Defaults to "/api/".
	APIPrefix string

	// AllowList enumerates read endpoints eligible for stale-while-revalidate,
	// matched by prefix (an exact path is its own prefix).
	AllowList []string

	// BypassList enumerates auth/callback prefixes that are never cached and
	// never served from cache. Bypass wins over AllowList.
	BypassList []string

	// OfflineCritical lists paths granted a last-resort cache re-read when the
	// network fails and no cached response was found on the first read.
	OfflineCritical []string

	// LogoutPath, when matched, purges the API store before the request is
	// forwarded to the network. The response always comes from the network.
	LogoutPath string
}

func (c *Config) validate() error {
	if c.Version == "" {
		return fmt.Errorf("offcache: config version is required")
	}
	if strings.ContainsAny(c.Version, ": ") {
		return fmt.Errorf("offcache: config version %q must not contain ':' or spaces", c.Version)
	}
	return nil
}

func (c *Config) shellStore() string { return shellRole + "-" + c.Version }
func (c *Config) apiStore() string   { return apiRole + "-" + c.Version }

// ownedStore reports whether a store name belongs to this application,
// whatever version it carries. Used by activation garbage collection.
func ownedStore(name string) bool {
	return strings.HasPrefix(name, shellRole+"-") || strings.HasPrefix(name, apiRole+"-")
}

func (c *Config) offlineCritical(path string) bool {
	for _, p := range c.OfflineCritical {
		if path == p {
			return true
		}
	}
	return false
}
