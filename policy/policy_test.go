package policy

import "testing"

func testEngine() *Engine {
	return New(Config{
		APIPrefix: "/api/",
		Bypass: []string{
			"/api/auth/",
			"/api/strava/auth-url",
			"/api/strava/callback",
		},
		Allow: []string{
			"/api/sessions",
			"/api/metrics",
			"/api/maintenance",
			"/api/strava/activities",
		},
	})
}

func TestClassify(t *testing.T) {
	e := testEngine()

	cases := []struct {
		name   string
		method string
		path   string
		dest   Destination
		want   Class
	}{
		{"non_get_never_intercepted", "POST", "/api/sessions", DestNone, Uncacheable},
		{"non_get_even_for_assets", "PUT", "/app.js", DestScript, Uncacheable},
		{"allow_exact", "GET", "/api/sessions", DestNone, CacheableAPI},
		{"allow_prefix", "GET", "/api/sessions?limit=10", DestNone, CacheableAPI},
		{"allow_subpath", "GET", "/api/metrics/weekly", DestNone, CacheableAPI},
		{"bypass_auth", "GET", "/api/auth/me", DestNone, Bypass},
		{"navigation_is_shell", "GET", "/", DestDocument, ShellAsset},
		{"script_is_shell", "GET", "/assets/app.js", DestScript, ShellAsset},
		{"style_is_shell", "GET", "/assets/app.css", DestStyle, ShellAsset},
		{"image_is_shell", "GET", "/icons/icon-192.png", DestImage, ShellAsset},
		{"font_is_shell", "GET", "/fonts/inter.woff2", DestFont, ShellAsset},
		{"api_path_never_shell", "GET", "/api/export.css", DestStyle, Uncacheable},
		{"plain_get_unhandled", "GET", "/healthz", DestNone, Uncacheable},
		{"unlisted_api_read", "GET", "/api/plans/generate", DestNone, Uncacheable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Classify(tc.method, tc.path, tc.dest); got != tc.want {
				t.Fatalf("Classify(%s %s %q) = %v, want %v",
					tc.method, tc.path, tc.dest, got, tc.want)
			}
		})
	}
}

// Bypass must win even when a bypass path shares a prefix with an allow-listed
// endpoint: /api/strava/auth-url is bypass although /api/strava/activities is
// cacheable.
func TestBypassPrecedenceOverAllow(t *testing.T) {
	e := testEngine()

	if got := e.Classify("GET", "/api/strava/auth-url", DestNone); got != Bypass {
		t.Fatalf("auth-url classified %v, want Bypass", got)
	}
	if got := e.Classify("GET", "/api/strava/callback?code=abc", DestNone); got != Bypass {
		t.Fatalf("callback classified %v, want Bypass", got)
	}
	if got := e.Classify("GET", "/api/strava/activities", DestNone); got != CacheableAPI {
		t.Fatalf("activities classified %v, want CacheableAPI", got)
	}
}

// Without an APIPrefix nothing shields a navigation from the shell class, and
// with empty lists no data request is ever cache-eligible.
func TestZeroConfigEngine(t *testing.T) {
	var e Engine
	if got := e.Classify("GET", "/api/sessions", DestDocument); got != ShellAsset {
		t.Fatalf("zero engine navigation: got %v, want ShellAsset", got)
	}
	if got := e.Classify("GET", "/api/sessions", DestNone); got != Uncacheable {
		t.Fatalf("zero engine data request: got %v, want Uncacheable", got)
	}
}
