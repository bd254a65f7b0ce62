// Package notify aggregates push notifications into an ordered, deduplicated
// read/unread collection for the UI layer. The store is the local source of
// truth; the remote backend is a best-effort collaborator for deletes.
package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/adpulse/dashcore/internal/core/domain"
	"github.com/adpulse/dashcore/internal/metrics"
)

// RemoteStore is the backend collaborator for notification mutations.
// Deletes against it are fire-and-forget; a remote failure is never rolled
// back locally (the worst case is a notification reappearing on refresh).
type RemoteStore interface {
	DeleteNotification(ctx context.Context, id string) error
}

type entry struct {
	n   domain.Notification
	seq uint64 // insertion order, breaks timestamp ties
}

// Store holds the notification feed for one owner.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
	remote  RemoteStore
	log     *slog.Logger
}

// NewStore creates an empty store. remote may be nil; deletes are then
// local-only.
func NewStore(remote RemoteStore) *Store {
	return &Store{
		entries: make(map[string]*entry),
		remote:  remote,
		log:     slog.Default(),
	}
}

// Upsert inserts a notification or, when the id is already present, replaces
// the entry's mutable fields in place. The entry keeps its sort position
// unless the timestamp changed. A missing id is assigned locally.
func (s *Store) Upsert(n domain.Notification) domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	if existing, ok := s.entries[n.ID]; ok {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = existing.n.CreatedAt
		}
		existing.n = n
	} else {
		s.entries[n.ID] = &entry{n: n, seq: s.nextSeq}
		s.nextSeq++
	}

	metrics.NotificationsUpserted.Inc()
	s.updateUnreadGaugeLocked()
	return n
}

// MarkRead sets the read flag on one notification. Unknown ids are a no-op.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.n.Read = true
	}
	s.updateUnreadGaugeLocked()
}

// MarkAllRead sets the read flag on every notification.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.n.Read = true
	}
	s.updateUnreadGaugeLocked()
}

// Remove deletes the notification locally and fires a best-effort remote
// delete. The local delete is not rolled back if the remote call fails.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	_, existed := s.entries[id]
	delete(s.entries, id)
	s.updateUnreadGaugeLocked()
	s.mu.Unlock()

	if !existed || s.remote == nil {
		return
	}
	go func() {
		if err := s.remote.DeleteNotification(ctx, id); err != nil {
			s.log.Warn("remote notification delete failed", "notification_id", id, "error", err)
		}
	}()
}

// Clear drops every notification, for owner logout. No remote calls.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.nextSeq = 0
	s.updateUnreadGaugeLocked()
}

// List returns the notifications ordered by creation timestamp descending,
// newest first; ties broken by insertion order.
func (s *Store) List() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		ti, tj := ordered[i].n.CreatedAt, ordered[j].n.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ordered[i].seq < ordered[j].seq
	})

	out := make([]domain.Notification, len(ordered))
	for i, e := range ordered {
		out[i] = e.n
	}
	return out
}

// Get returns one notification by id.
func (s *Store) Get(id string) (domain.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.Notification{}, false
	}
	return e.n, true
}

// UnreadCount is a derived projection; it is never stored.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadLocked()
}

func (s *Store) unreadLocked() int {
	count := 0
	for _, e := range s.entries {
		if !e.n.Read {
			count++
		}
	}
	return count
}

func (s *Store) updateUnreadGaugeLocked() {
	metrics.UnreadNotifications.Set(float64(s.unreadLocked()))
}
