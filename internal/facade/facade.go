// Package facade gives the page a synchronous key/value store. Reads are
// served from an in-memory cache; writes land in the cache first and are
// persisted in the background to whichever backend the page has: the
// extension behind a bridge, page-local storage, or nothing at all.
package facade

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"postit/internal/clock"
	"postit/internal/kv"
	"postit/internal/pending"
	"postit/internal/protocol"
	"postit/internal/services/postit"
)

// Defaults used when Options leave a duration unset.
const (
	DefaultPresenceWindow = 100 * time.Millisecond
	DefaultRequestTimeout = 5 * time.Second
	DefaultReadyFallback  = 500 * time.Millisecond
)

// NotesKey is where the notes collection lives in the cache.
const NotesKey = "postit:" + postit.NotesKey

// Page is the page-visible channel the facade and the bridge share.
type Page interface {
	Post(msg protocol.Message)
	Listen(ctx context.Context, fn func(protocol.Message)) (stop func())
}

// Options configures a Facade.
type Options struct {
	Page Page
	// Local is page-local storage; nil means the page has none.
	Local          kv.Store
	Clock          clock.Clock
	PresenceWindow time.Duration
	RequestTimeout time.Duration
	ReadyFallback  time.Duration
	Log            *slog.Logger
}

// Facade is the page's key/value store.
type Facade struct {
	mu    sync.RWMutex
	cache *cache

	page          Page
	clock         clock.Clock
	log           *slog.Logger
	readyFallback time.Duration

	pending  *pending.Table[protocol.Response]
	ext      *extension
	fallback Backend

	stateMu    sync.RWMutex
	backend    Backend
	bridgeSeen bool
	decided    bool
	hasExt     bool
	toggles    []func()
	ready      chan struct{}
	readyOnce  sync.Once

	writer *writer
	ctx    context.Context
	cancel context.CancelFunc
	stop   func()
	timer  clock.Timer
}

// New starts a facade: it seeds the cache from page-local storage, listens
// for a bridge during the presence window and then settles on a backend.
// Ready is closed once the cache is warm.
func New(ctx context.Context, opts Options) *Facade {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.PresenceWindow <= 0 {
		opts.PresenceWindow = DefaultPresenceWindow
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ReadyFallback <= 0 {
		opts.ReadyFallback = DefaultReadyFallback
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	f := &Facade{
		cache:         newCache(),
		page:          opts.Page,
		clock:         opts.Clock,
		log:           opts.Log,
		readyFallback: opts.ReadyFallback,
		pending:       pending.New[protocol.Response](opts.Clock, opts.RequestTimeout),
		ready:         make(chan struct{}),
		writer:        newWriter(ctx, opts.Log),
		ctx:           ctx,
		cancel:        cancel,
	}
	f.ext = &extension{page: opts.Page, pending: f.pending}
	f.fallback = Backend(memory{})
	if opts.Local != nil {
		f.fallback = local{store: opts.Local}
	}
	f.backend = f.fallback

	f.seed(ctx)

	f.stop = opts.Page.Listen(ctx, f.onMessage)
	f.timer = opts.Clock.AfterFunc(opts.PresenceWindow, f.decide)
	return f
}

func (f *Facade) seed(ctx context.Context) {
	snapshot, err := f.fallback.Load(ctx)
	if err != nil {
		f.log.Warn("page-local storage unreadable", "backend", f.fallback.Name(), "error", err)
		return
	}
	f.mu.Lock()
	f.cache.merge(snapshot, f.cache.rev)
	f.mu.Unlock()
}

func (f *Facade) onMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeExtensionReady:
		f.stateMu.Lock()
		late := f.decided
		f.bridgeSeen = true
		f.stateMu.Unlock()
		if late {
			f.log.Info("bridge announced after presence window, staying on current backend")
		} else {
			f.log.Debug("bridge detected")
		}
	case protocol.TypeStorageResponse:
		if msg.Response != nil {
			f.pending.Resolve(msg.ID, *msg.Response)
		}
	case protocol.TypeToggle:
		f.stateMu.RLock()
		fns := slices.Clone(f.toggles)
		f.stateMu.RUnlock()
		for _, fn := range fns {
			fn()
		}
	}
}

// decide runs once the presence window closes.
func (f *Facade) decide() {
	f.stateMu.Lock()
	f.decided = true
	if f.bridgeSeen {
		f.hasExt = true
		f.backend = f.ext
	}
	hasExt := f.hasExt
	name := f.backend.Name()
	f.stateMu.Unlock()

	f.log.Info("storage backend selected", "backend", name)
	if !hasExt {
		f.markReady()
		return
	}
	go func() {
		if !f.Sync(f.ctx) {
			f.log.Warn("initial sync failed, serving cached values")
		}
		f.markReady()
	}()
}

func (f *Facade) markReady() {
	f.readyOnce.Do(func() {
		close(f.ready)
		f.page.Post(protocol.Signal(protocol.TypeReady))
	})
}

// Ready is closed once the facade is ready to serve the UI.
func (f *Facade) Ready() <-chan struct{} {
	return f.ready
}

// AwaitReady blocks until the facade is ready, the ready fallback deadline
// passes or ctx is done. It reports whether the facade became ready.
func (f *Facade) AwaitReady(ctx context.Context) bool {
	select {
	case <-f.ready:
		return true
	default:
	}

	expired := make(chan struct{})
	t := f.clock.AfterFunc(f.readyFallback, func() { close(expired) })
	defer t.Stop()

	select {
	case <-f.ready:
		return true
	case <-expired:
		f.log.Warn("ready fallback deadline passed")
		return false
	case <-ctx.Done():
		return false
	}
}

// HasExtension reports whether writes go to the extension.
func (f *Facade) HasExtension() bool {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.hasExt
}

// Backend returns the name of the backend writes are persisted to.
func (f *Facade) Backend() string {
	return f.currentBackend().Name()
}

func (f *Facade) currentBackend() Backend {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.backend
}

// Get returns the cached value of key.
func (f *Facade) Get(key string) (json.RawMessage, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cache.get(key)
}

// GetJSON decodes the cached value of key into v. It reports false when the
// key is missing or the value does not decode.
func (f *Facade) GetJSON(key string, v any) bool {
	raw, ok := f.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		f.log.Warn("cached value does not decode", "key", key, "error", err)
		return false
	}
	return true
}

// Has reports whether key is cached.
func (f *Facade) Has(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.cache.m[key]
	return ok
}

// Keys returns the cached keys in insertion order.
func (f *Facade) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.cache.keys)
}

// Len returns the number of cached keys.
func (f *Facade) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache.keys)
}

// Set caches value under key and persists it in the background.
func (f *Facade) Set(key string, value json.RawMessage) {
	value = slices.Clone(value)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.set(key, value)
	f.cache.touch(key)
	f.persist("set", key, func(ctx context.Context, b Backend) error {
		return b.Set(ctx, key, value)
	})
}

// SetJSON encodes v and sets it under key.
func (f *Facade) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.Set(key, raw)
	return nil
}

// Remove drops key. Keys that are not cached are left alone.
func (f *Facade) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.cache.remove(key) {
		return
	}
	f.cache.touch(key)
	f.persist("remove", key, func(ctx context.Context, b Backend) error {
		return b.Remove(ctx, key)
	})
}

// Clear drops every key.
func (f *Facade) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.clear()
	f.persist("clear", "", func(ctx context.Context, b Backend) error {
		return b.Clear(ctx)
	})
}

// persist queues fn behind every earlier write. Callers hold f.mu so the
// queue order matches the cache revision order.
func (f *Facade) persist(name, key string, fn func(ctx context.Context, b Backend) error) {
	b := f.currentBackend()
	f.writer.submit(op{
		name: name,
		key:  key,
		run:  func(ctx context.Context) error { return fn(ctx, b) },
	})
}

// Flush waits until every write issued so far has been persisted or failed.
func (f *Facade) Flush() {
	f.writer.wait()
}

// Sync merges the extension's snapshot into the cache. The snapshot is read
// behind every write queued so far; keys missing from it, and keys written
// while it was in flight, are kept. It reports false, leaving the cache
// untouched, when there is no extension or the request fails.
func (f *Facade) Sync(ctx context.Context) bool {
	if !f.HasExtension() {
		return false
	}

	type loaded struct {
		snapshot map[string]json.RawMessage
		err      error
	}
	done := make(chan loaded, 1)

	f.mu.Lock()
	since := f.cache.rev
	queued := f.writer.submit(op{
		name: "sync",
		run: func(context.Context) error {
			snapshot, err := f.ext.Load(ctx)
			done <- loaded{snapshot, err}
			return nil
		},
	})
	f.mu.Unlock()
	if !queued {
		return false
	}

	var got loaded
	select {
	case got = <-done:
	case <-ctx.Done():
		return false
	}
	if got.err != nil {
		f.log.Warn("sync failed", "error", got.err)
		return false
	}

	f.mu.Lock()
	merged := f.cache.merge(got.snapshot, since)
	f.mu.Unlock()
	if !merged {
		f.log.Debug("sync snapshot predates a clear, discarded")
		return true
	}
	f.log.Debug("synced from extension", "keys", len(got.snapshot))
	return true
}

// ListURLs returns the pages holding notes. With an extension it asks the
// gateway; otherwise it reads the cached collection.
func (f *Facade) ListURLs(ctx context.Context) ([]string, error) {
	if f.HasExtension() {
		return f.ext.listURLs(ctx)
	}
	return postit.LoadCollection(f.Namespace("postit"), f.log).URLs(), nil
}

// OnToggle registers fn to run on every toggle signal.
func (f *Facade) OnToggle(fn func()) {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	f.toggles = append(f.toggles, fn)
}

// Pending returns the number of extension requests in flight.
func (f *Facade) Pending() int {
	return f.pending.Len()
}

// Close tears the facade down. Extension requests still in flight fail;
// writes queued for page-local storage are still applied. Call Flush first
// to wait for every write.
func (f *Facade) Close() {
	f.timer.Stop()
	f.pending.Close(nil)
	f.writer.close()
	f.stop()
	f.cancel()
}
