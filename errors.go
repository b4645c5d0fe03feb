package offcache

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed worker.
	ErrClosed = errors.New("offcache: worker closed")

	// ErrNoPresenter means HandlePush was called without a Presenter wired.
	ErrNoPresenter = errors.New("offcache: no notification presenter configured")

	// ErrNoClients means HandleNotificationClick was called without a
	// Clients host wired.
	ErrNoClients = errors.New("offcache: no window clients host configured")
)

// InstallError reports a failed shell-cache installation. Installation is
// all-or-nothing: the first manifest asset that cannot be fetched and cached
// aborts the whole install and the version never activates.
type InstallError struct {
	Version string
	Asset   string
	Err     error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %q failed: asset %q: %v", e.Version, e.Asset, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// PurgeError reports entries that could not be removed while clearing the
// user's API cache. The purge keeps going past individual failures so a
// single bad key cannot leave the rest of the store populated.
type PurgeError struct {
	Store string
	Errs  []error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge %q: %d entr%s failed: %v",
		e.Store, len(e.Errs), plural(len(e.Errs)), errors.Join(e.Errs...))
}

func (e *PurgeError) Unwrap() []error { return e.Errs }

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
