// Package source holds the adapter registry and the helpers shared by the
// venue adapters: error classification, level normalisation, pacing and
// symbol mapping.
package source

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// Entry is one configured source.
type Entry struct {
	Adapter     domain.SourceAdapter
	Kind        string
	Enabled     bool
	Environment domain.Environment
}

type health struct {
	checked   time.Time
	success   time.Time
	latency   time.Duration
	lastError *domain.FetchError
}

type registered struct {
	Entry
	health health
}

// Registry holds every configured source. The active set (enabled sources)
// is fixed at construction; disabled sources stay visible in Statuses and
// Lookup so callers can report them, but are never fanned out to.
type Registry struct {
	all       map[string]*registered
	ids       []string
	active    []domain.SourceAdapter
	activeIDs []string

	mu sync.RWMutex // guards health fields
}

// NewRegistry builds a registry. Source ids must be unique and non-empty.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{all: make(map[string]*registered, len(entries))}

	for _, e := range entries {
		if e.Adapter == nil {
			return nil, fmt.Errorf("source: registry: nil adapter")
		}
		id := e.Adapter.ID()
		if id == "" {
			return nil, fmt.Errorf("source: registry: adapter with empty id")
		}
		if _, dup := r.all[id]; dup {
			return nil, fmt.Errorf("source: registry: duplicate source id %q", id)
		}
		if e.Environment == "" {
			e.Environment = domain.EnvLive
		}
		r.all[id] = &registered{Entry: e}
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)

	for _, id := range r.ids {
		if reg := r.all[id]; reg.Enabled {
			r.active = append(r.active, reg.Adapter)
			r.activeIDs = append(r.activeIDs, id)
		}
	}
	return r, nil
}

// Active returns the enabled adapters in id order.
func (r *Registry) Active() []domain.SourceAdapter {
	out := make([]domain.SourceAdapter, len(r.active))
	copy(out, r.active)
	return out
}

// ActiveIDs returns the ids of the enabled adapters in order.
func (r *Registry) ActiveIDs() []string {
	out := make([]string, len(r.activeIDs))
	copy(out, r.activeIDs)
	return out
}

// Lookup returns the adapter with the given id. A configured but disabled
// source yields a disabled FetchError; an unknown id yields
// domain.ErrSourceNotFound.
func (r *Registry) Lookup(id string) (domain.SourceAdapter, error) {
	reg, ok := r.all[id]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", id, domain.ErrSourceNotFound)
	}
	if !reg.Enabled {
		return nil, &domain.FetchError{SourceID: id, Kind: domain.FetchDisabled, Detail: "source is disabled in configuration"}
	}
	return reg.Adapter, nil
}

// Select returns the active adapters with the given ids, in id order.
func (r *Registry) Select(ids []string) ([]domain.SourceAdapter, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, err := r.Lookup(id); err != nil {
			return nil, err
		}
		want[id] = true
	}
	var out []domain.SourceAdapter
	for i, id := range r.activeIDs {
		if want[id] {
			out = append(out, r.active[i])
		}
	}
	return out, nil
}

// Observe records the outcome of one fetch. fetchErr is nil on success.
func (r *Registry) Observe(id string, latency time.Duration, fetchErr *domain.FetchError, at time.Time) {
	reg, ok := r.all[id]
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg.health.checked = at
	reg.health.latency = latency
	reg.health.lastError = fetchErr
	if fetchErr == nil {
		reg.health.success = at
	}
}

// Statuses lists every configured source with its last observed health.
func (r *Registry) Statuses() []domain.SourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SourceStatus, 0, len(r.ids))
	for _, id := range r.ids {
		reg := r.all[id]
		st := domain.SourceStatus{
			ID:            id,
			Kind:          reg.Kind,
			Enabled:       reg.Enabled,
			Environment:   reg.Environment,
			LastLatencyMs: reg.health.latency.Milliseconds(),
		}
		if !reg.health.checked.IsZero() {
			checked := reg.health.checked
			st.LastCheckedAt = &checked
			st.Healthy = reg.health.lastError == nil
		}
		if !reg.health.success.IsZero() {
			success := reg.health.success
			st.LastSuccessAt = &success
		}
		if e := reg.health.lastError; e != nil {
			st.LastErrorKind = e.Kind
			st.LastError = e.Detail
		}
		out = append(out, st)
	}
	return out
}
