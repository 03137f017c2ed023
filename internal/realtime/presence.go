package realtime

import (
	"context"
	"log/slog"
	"sync"

	"rony-server/internal/models"
)

// PresenceStore persists presence transitions alongside the in-memory state,
// so they survive for polling clients. Implemented by the Redis repository.
type PresenceStore interface {
	SetStatus(ctx context.Context, userID uint, status string) error
}

// Presence tracks the online/away/busy/offline status per user, driven by
// registry membership edges and by the profile-update route. Connect and
// disconnect edges force online/offline regardless of a previously set
// away/busy state; that matches the platform's observed behavior.
type Presence struct {
	mu       sync.RWMutex
	statuses map[uint]string

	store PresenceStore
}

func NewPresence(store PresenceStore) *Presence {
	return &Presence{
		statuses: make(map[uint]string),
		store:    store,
	}
}

// ConnectionRegistered applies a registry registration edge. When first is
// true (the user's first live connection) the user transitions to online and
// the transition is reported for broadcast.
func (p *Presence) ConnectionRegistered(ctx context.Context, userID uint, first bool) (status string, changed bool) {
	if !first {
		return p.Status(userID), false
	}

	p.setLocal(userID, models.StatusOnline)
	p.persist(ctx, userID, models.StatusOnline)
	return models.StatusOnline, true
}

// ConnectionUnregistered applies a registry removal edge. When last is true
// (the user's last live connection closed) the user transitions to offline.
func (p *Presence) ConnectionUnregistered(ctx context.Context, userID uint, last bool) (status string, changed bool) {
	if !last {
		return p.Status(userID), false
	}

	p.setLocal(userID, models.StatusOffline)
	p.persist(ctx, userID, models.StatusOffline)
	return models.StatusOffline, true
}

// SetStatus applies an externally requested state (away/busy, or an explicit
// online/offline from the profile route). It is preserved only until the next
// connect/disconnect edge recomputes the state.
func (p *Presence) SetStatus(ctx context.Context, userID uint, status string) error {
	p.setLocal(userID, status)
	return p.store.SetStatus(ctx, userID, status)
}

// Status returns the current in-memory state, defaulting to offline.
func (p *Presence) Status(userID uint) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if s, ok := p.statuses[userID]; ok {
		return s
	}
	return models.StatusOffline
}

func (p *Presence) setLocal(userID uint, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if status == models.StatusOffline {
		delete(p.statuses, userID)
		return
	}
	p.statuses[userID] = status
}

// persist writes through to the store outside any lock; a store failure only
// loses the durable copy, never the in-memory transition.
func (p *Presence) persist(ctx context.Context, userID uint, status string) {
	if err := p.store.SetStatus(ctx, userID, status); err != nil {
		slog.Error("Failed to persist presence transition", "userID", userID, "status", status, "error", err)
	}
}
