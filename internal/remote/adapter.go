// Package remote stores notes in a REST resource instead of the extension.
// Reads are served from an in-memory copy of the last known server state;
// writes update that copy at once and reach the server in the background.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"postit/internal/clock"
	"postit/internal/services/postit"
)

// DefaultDebounce is the quiescence window for content edits.
const DefaultDebounce = 300 * time.Millisecond

const requestTimeout = 10 * time.Second

// ErrUnexpectedStatus is wrapped by errors for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// Options configures an Adapter.
type Options struct {
	// Endpoint is the collection URL of the page's notes.
	Endpoint string
	// Token, when set, is sent as a bearer token.
	Token    string
	Client   *http.Client
	Clock    clock.Clock
	Debounce time.Duration
	Log      *slog.Logger
}

// Adapter implements postit.Repository over the REST API.
type Adapter struct {
	mu    sync.RWMutex
	notes []postit.Note

	endpoint string
	token    string
	client   *http.Client
	log      *slog.Logger
	edits    *debouncer

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	tailsMu sync.Mutex
	tails   map[string]chan struct{}
}

var _ postit.Repository = (*Adapter)(nil)

// New creates an adapter for opts.Endpoint. Call Load to fetch the notes.
func New(opts Options) *Adapter {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: requestTimeout}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		notes:    []postit.Note{},
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		token:    opts.Token,
		client:   opts.Client,
		log:      opts.Log.With("endpoint", opts.Endpoint),
		edits:    newDebouncer(opts.Clock, opts.Debounce),
		ctx:      ctx,
		cancel:   cancel,
		tails:    make(map[string]chan struct{}),
	}
}

// Load replaces the cached notes with the server's list.
func (a *Adapter) Load(ctx context.Context) error {
	var records []Record
	if err := a.do(ctx, http.MethodGet, a.endpoint, nil, &records); err != nil {
		a.log.Warn("failed to load notes", "error", err)
		return err
	}

	notes := make([]postit.Note, 0, len(records))
	for _, r := range records {
		notes = append(notes, r.Note())
	}

	a.mu.Lock()
	a.notes = notes
	a.mu.Unlock()
	return nil
}

// Notes returns the cached notes.
func (a *Adapter) Notes() []postit.Note {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.notes)
}

// Create caches n and posts it.
func (a *Adapter) Create(n postit.Note) {
	a.mu.Lock()
	a.notes = append(a.notes, n)
	a.mu.Unlock()

	a.background("create", n.ID, func(ctx context.Context) error {
		return a.do(ctx, http.MethodPost, a.endpoint, ToRecord(n), nil)
	})
}

// Update caches n and puts it. A content edit still waiting for its window
// is superseded, since n carries the current content.
func (a *Adapter) Update(n postit.Note) {
	if !a.replace(n.ID, func(cur *postit.Note) { *cur = n }) {
		return
	}
	a.edits.cancel(n.ID)
	a.put(n)
}

// UpdateContent caches the new content and schedules a write once edits to
// the note pause for the debounce window. The latest edit wins.
func (a *Adapter) UpdateContent(id, content string) {
	if !a.replace(id, func(cur *postit.Note) { cur.Content = content }) {
		return
	}
	a.edits.schedule(id, func() {
		if n, ok := a.find(id); ok {
			a.put(n)
		}
	})
}

// Delete drops the note and deletes it on the server.
func (a *Adapter) Delete(id string) {
	a.mu.Lock()
	a.notes = slices.DeleteFunc(a.notes, func(n postit.Note) bool { return n.ID == id })
	a.mu.Unlock()

	a.edits.cancel(id)
	a.background("delete", id, func(ctx context.Context) error {
		return a.do(ctx, http.MethodDelete, a.itemURL(id), nil, nil)
	})
}

// Flush sends pending content edits now and waits for every request in
// flight, or for ctx.
func (a *Adapter) Flush(ctx context.Context) error {
	a.edits.flush()

	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending edits and releases the adapter.
func (a *Adapter) Close() error {
	err := a.Flush(context.Background())
	a.cancel()
	return err
}

func (a *Adapter) put(n postit.Note) {
	a.background("update", n.ID, func(ctx context.Context) error {
		return a.do(ctx, http.MethodPut, a.itemURL(n.ID), ToRecord(n), nil)
	})
}

func (a *Adapter) replace(id string, fn func(n *postit.Note)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := slices.IndexFunc(a.notes, func(n postit.Note) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	fn(&a.notes[i])
	return true
}

func (a *Adapter) find(id string) (postit.Note, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i := slices.IndexFunc(a.notes, func(n postit.Note) bool { return n.ID == id })
	if i < 0 {
		return postit.Note{}, false
	}
	return a.notes[i], true
}

// background runs fn on its own goroutine, after the requests already
// issued for the same note. Failures are logged; the cached state is not
// rolled back.
func (a *Adapter) background(op, id string, fn func(ctx context.Context) error) {
	a.tailsMu.Lock()
	prev := a.tails[id]
	done := make(chan struct{})
	a.tails[id] = done
	a.tailsMu.Unlock()

	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		defer func() {
			a.tailsMu.Lock()
			if a.tails[id] == done {
				delete(a.tails, id)
			}
			a.tailsMu.Unlock()
			close(done)
		}()

		if prev != nil {
			<-prev
		}
		if err := fn(a.ctx); err != nil {
			a.log.Warn("remote write failed", "op", op, "note_id", id, "error", err)
		}
	}()
}

func (a *Adapter) itemURL(id string) string {
	return a.endpoint + "/" + url.PathEscape(id)
}

func (a *Adapter) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.log.Debug("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d on %s %s: %s", ErrUnexpectedStatus, resp.StatusCode, method, target, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
