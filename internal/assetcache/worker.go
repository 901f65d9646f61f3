// Package assetcache serves the assistant's static assets through a
// versioned, cache-first worker so the app shell keeps loading when the
// network side fails.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/messaging"
)

var (
	ErrNotCached     = errors.New("asset is not cached")
	ErrInstallFailed = errors.New("asset install failed")
)

// State is a worker lifecycle state
type State string

const (
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// Worker is one cache version moving through the lifecycle
type Worker struct {
	version string
	state   State
}

// Version is the name of the worker's cache
func (w *Worker) Version() string {
	return w.version
}

// Options configures a Registration
type Options struct {
	// Assets are the paths precached on install
	Assets []string
	// Shell is served when the network fails and the request is not cached
	Shell string
	// SkipWaitingOnInstall activates every installed worker immediately
	SkipWaitingOnInstall bool
	// Origin is the base URL relative requests are fetched from
	Origin string
}

// Registration owns the workers of one asset scope. At most one worker is
// installing, one waiting and one active (the controller).
type Registration struct {
	storage CacheStorage
	network http.RoundTripper
	origin  *url.URL
	opts    Options
	now     func() time.Time

	mu         sync.RWMutex
	installing *Worker
	waiting    *Worker
	active     *Worker
}

// NewRegistration creates a registration with no workers
func NewRegistration(storage CacheStorage, network http.RoundTripper, opts Options) (*Registration, error) {
	origin, err := url.Parse(opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid asset origin %q: %w", opts.Origin, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("asset origin %q must be an absolute URL", opts.Origin)
	}

	r := &Registration{
		storage: storage,
		network: network,
		origin:  origin,
		opts:    opts,
		now:     time.Now,
	}

	// assets and the shell are stored under the key requests are looked up by
	r.opts.Assets = make([]string, 0, len(opts.Assets))
	for _, asset := range opts.Assets {
		key, err := r.assetKey(asset)
		if err != nil {
			return nil, err
		}
		r.opts.Assets = append(r.opts.Assets, key)
	}
	if opts.Shell != "" {
		if r.opts.Shell, err = r.assetKey(opts.Shell); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// assetKey resolves a configured asset ("./app.js", "/app.js" or an absolute
// URL) against the origin and returns its cache key
func (r *Registration) assetKey(asset string) (string, error) {
	ref, err := r.origin.Parse(asset)
	if err != nil {
		return "", fmt.Errorf("invalid asset URL %q: %w", asset, err)
	}
	if ref.Scheme == r.origin.Scheme && ref.Host == r.origin.Host {
		return ref.RequestURI(), nil
	}
	return ref.String(), nil
}

// State returns the current state of w
func (r *Registration) State(w *Worker) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return w.state
}

// Controller returns the active worker, or nil before the first activation
func (r *Registration) Controller() *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Waiting returns the installed worker waiting to activate, or nil
func (r *Registration) Waiting() *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.waiting
}

// Install precaches every asset into a cache named version. Any asset that
// cannot be fetched with status 200 fails the whole install: the cache is
// deleted and the worker becomes redundant. A successful worker activates at
// once when SkipWaitingOnInstall is set or nothing is active yet, and waits
// otherwise.
func (r *Registration) Install(ctx context.Context, version string) (*Worker, error) {
	w := &Worker{version: version, state: StateInstalling}

	r.mu.Lock()
	r.installing = w
	r.mu.Unlock()

	logging.Info("Installing asset cache %s (%d assets)", version, len(r.opts.Assets))

	if err := r.precache(ctx, version); err != nil {
		if _, derr := r.storage.Delete(ctx, version); derr != nil {
			logging.Warn("Failed to discard partial cache %s: %v", version, derr)
		}
		r.mu.Lock()
		w.state = StateRedundant
		if r.installing == w {
			r.installing = nil
		}
		r.mu.Unlock()
		return w, fmt.Errorf("%w: %s: %v", ErrInstallFailed, version, err)
	}

	r.mu.Lock()
	if r.installing == w {
		r.installing = nil
	}
	w.state = StateInstalled
	if r.waiting != nil {
		r.waiting.state = StateRedundant
	}
	r.waiting = w
	activate := r.opts.SkipWaitingOnInstall || r.active == nil
	r.mu.Unlock()

	logging.Info("Asset cache %s installed", version)

	if activate {
		if err := r.activateWaiting(ctx); err != nil {
			return w, err
		}
	}
	return w, nil
}

func (r *Registration) precache(ctx context.Context, version string) error {
	if err := r.storage.Open(ctx, version); err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	for _, asset := range r.opts.Assets {
		resp, err := r.fetch(ctx, http.MethodGet, asset, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", asset, err)
		}
		if resp.Status != http.StatusOK {
			return fmt.Errorf("failed to fetch %s: status %d", asset, resp.Status)
		}
		resp.URL = asset
		if err := r.storage.Put(ctx, version, resp); err != nil {
			return fmt.Errorf("failed to store %s: %w", asset, err)
		}
	}
	return nil
}

// SkipWaiting activates the waiting worker, reporting whether there was one
func (r *Registration) SkipWaiting(ctx context.Context) (bool, error) {
	if r.Waiting() == nil {
		return false, nil
	}
	return true, r.activateWaiting(ctx)
}

// HandleMessage reacts to worker messages; skipWaiting is the only action
func (r *Registration) HandleMessage(ctx context.Context, msg messaging.Message) error {
	if msg.Action != messaging.ActionSkipWaiting {
		logging.Debug("Asset worker ignoring %q message", msg.Action)
		return nil
	}
	_, err := r.SkipWaiting(ctx)
	return err
}

// activateWaiting deletes every cache other than the waiting worker's and
// makes it the controller. Cleanup failures are logged and do not block
// activation.
func (r *Registration) activateWaiting(ctx context.Context) error {
	r.mu.Lock()
	w := r.waiting
	if w == nil {
		r.mu.Unlock()
		return nil
	}
	r.waiting = nil
	w.state = StateActivating
	r.mu.Unlock()

	if err := r.deleteOtherCaches(ctx, w.version); err != nil {
		logging.Warn("Cache cleanup for %s incomplete: %v", w.version, err)
	}

	r.mu.Lock()
	if prev := r.active; prev != nil && prev != w {
		prev.state = StateRedundant
	}
	w.state = StateActivated
	r.active = w
	r.mu.Unlock()

	logging.Info("Asset cache %s activated", w.version)
	return nil
}

func (r *Registration) deleteOtherCaches(ctx context.Context, keep string) error {
	names, err := r.storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("failed to list caches: %w", err)
	}

	var errs []error
	for _, name := range names {
		if name == keep {
			continue
		}
		logging.Info("Deleting old cache: %s", name)
		if _, err := r.storage.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the controller's cached response for path
func (r *Registration) Lookup(ctx context.Context, path string) (*CachedResponse, error) {
	w := r.Controller()
	if w == nil {
		return nil, ErrNotCached
	}
	key, err := r.assetKey(path)
	if err != nil {
		return nil, err
	}
	resp, err := r.storage.Match(ctx, w.version, key)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNotCached
	}
	return resp, nil
}
