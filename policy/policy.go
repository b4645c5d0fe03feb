// Package policy holds the pure request-classification logic of the worker.
// Classification is a function of method, path and destination only; it does
// no cache I/O and is recomputed per request.
package policy

import (
	"net/http"
	"strings"
)

// Class is the outcome of classifying one request.
type Class int

const (
	// Uncacheable requests are left to the network untouched.
	Uncacheable Class = iota
	// Bypass requests are never cached and never served from cache.
	Bypass
	// ShellAsset requests go through the cache-first shell store.
	ShellAsset
	// CacheableAPI requests go through stale-while-revalidate.
	CacheableAPI
)

func (c Class) String() string {
	switch c {
	case Bypass:
		return "bypass"
	case ShellAsset:
		return "shell_asset"
	case CacheableAPI:
		return "cacheable_api"
	default:
		return "uncacheable"
	}
}

// Destination mirrors the request destination reported by the host: what kind
// of resource the application is loading.
type Destination string

const (
	DestNone     Destination = ""
	DestDocument Destination = "document"
	DestScript   Destination = "script"
	DestStyle    Destination = "style"
	DestImage    Destination = "image"
	DestFont     Destination = "font"
)

// Config is the immutable rule set an Engine classifies against.
type Config struct {
	// APIPrefix excludes its subtree from shell-asset classification.
	APIPrefix string
	// Bypass prefixes win over Allow, even when they overlap.
	Bypass []string
	// Allow prefixes mark cache-eligible read endpoints. An exact path is its
	// own prefix.
	Allow []string
}

// Engine classifies requests. Construct with New; the zero value has no
// lists, so it classifies by destination alone.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Classify returns the class of one request. Only GET requests are ever
// intercepted; bypass takes precedence over allow; shell assets are decided
// by destination, not path, except that nothing under APIPrefix is a shell
// asset.
func (e *Engine) Classify(method, path string, dest Destination) Class {
	if method != http.MethodGet {
		return Uncacheable
	}
	for _, p := range e.cfg.Bypass {
		if strings.HasPrefix(path, p) {
			return Bypass
		}
	}
	for _, p := range e.cfg.Allow {
		if strings.HasPrefix(path, p) {
			return CacheableAPI
		}
	}
	if e.shellAsset(path, dest) {
		return ShellAsset
	}
	return Uncacheable
}

func (e *Engine) shellAsset(path string, dest Destination) bool {
	if e.cfg.APIPrefix != "" && strings.HasPrefix(path, e.cfg.APIPrefix) {
		return false
	}
	switch dest {
	case DestDocument, DestScript, DestStyle, DestImage, DestFont:
		return true
	default:
		return false
	}
}
