// Package session wires the request client, push-event source, notification
// store, and per-job trackers into one explicitly constructed container with
// application lifetime. Pages consume the session instead of importing
// module-level singletons.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adpulse/dashcore/internal/campaign"
	"github.com/adpulse/dashcore/internal/core/domain"
	"github.com/adpulse/dashcore/internal/infra/api"
	"github.com/adpulse/dashcore/internal/infra/stream"
	"github.com/adpulse/dashcore/internal/notify"
	"github.com/adpulse/dashcore/internal/tracking"
)

// Config holds everything a session needs from the embedding application.
type Config struct {
	OwnerID string
	API     api.Config
	Tokens  api.TokenProvider
	Source  stream.Source
}

// Session is the per-user application core.
type Session struct {
	ownerID       string
	client        *api.Client
	campaigns     *campaign.Service
	notifications *notify.Store
	source        stream.Source
	log           *slog.Logger

	mu       sync.Mutex
	trackers map[string]*tracking.Tracker
	feed     stream.Subscription
	started  bool
}

// New constructs a session. Nothing is subscribed until Start.
func New(cfg Config) (*Session, error) {
	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("session requires an owner id")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("session requires an event source")
	}

	client := api.NewClient(cfg.API, cfg.Tokens)
	campaigns := campaign.NewService(client)

	return &Session{
		ownerID:       cfg.OwnerID,
		client:        client,
		campaigns:     campaigns,
		notifications: notify.NewStore(campaigns),
		source:        cfg.Source,
		log:           slog.Default().With("owner_id", cfg.OwnerID),
		trackers:      make(map[string]*tracking.Tracker),
	}, nil
}

// Start attaches the owner's notification feed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("session already started")
	}

	feed, err := s.source.Subscribe(ctx, stream.NotificationTopic(s.ownerID))
	if err != nil {
		return fmt.Errorf("subscribe notification feed: %w", err)
	}
	s.feed = feed
	s.started = true

	go s.consumeFeed(feed)
	s.log.Info("session started")
	return nil
}

// Track opens a progress tracker for a job id. A job has at most one active
// tracker; a second Track for the same job while the first is live fails.
// A tracker left in a terminal state is replaced.
func (s *Session) Track(ctx context.Context, jobID string, cb tracking.Callbacks) (*tracking.Tracker, error) {
	s.mu.Lock()
	if existing, ok := s.trackers[jobID]; ok {
		if !existing.Snapshot().Terminal {
			s.mu.Unlock()
			return nil, fmt.Errorf("job %s is already tracked", jobID)
		}
		delete(s.trackers, jobID)
	}
	t := tracking.NewTracker(jobID, s.ownerID, s.source, s.campaigns, cb)
	s.trackers[jobID] = t
	s.mu.Unlock()

	if err := t.Start(ctx); err != nil {
		s.mu.Lock()
		delete(s.trackers, jobID)
		s.mu.Unlock()
		return nil, err
	}
	return t, nil
}

// Untrack cancels and forgets the tracker for a job id, e.g. when the user
// navigates away from the page that opened it.
func (s *Session) Untrack(jobID string) {
	s.mu.Lock()
	t, ok := s.trackers[jobID]
	delete(s.trackers, jobID)
	s.mu.Unlock()

	if ok {
		t.Cancel()
	}
}

// Campaigns returns the typed campaign surface.
func (s *Session) Campaigns() *campaign.Service {
	return s.campaigns
}

// Notifications returns the notification store.
func (s *Session) Notifications() *notify.Store {
	return s.notifications
}

// Client returns the underlying request client for ad hoc calls.
func (s *Session) Client() *api.Client {
	return s.client
}

// Logout clears the notification feed and cancels all tracking. The remote
// store is not touched; notifications are a per-login projection.
func (s *Session) Logout() {
	s.detach()
	s.notifications.Clear()
	s.log.Info("session logged out")
}

// Stop detaches all subscriptions for shutdown. Local notification state is
// kept so a restart can re-render immediately.
func (s *Session) Stop(ctx context.Context) error {
	s.detach()
	s.log.Info("session stopped")
	return nil
}

func (s *Session) detach() {
	s.mu.Lock()
	feed := s.feed
	s.feed = nil
	s.started = false
	trackers := make([]*tracking.Tracker, 0, len(s.trackers))
	for _, t := range s.trackers {
		trackers = append(trackers, t)
	}
	s.trackers = make(map[string]*tracking.Tracker)
	s.mu.Unlock()

	for _, t := range trackers {
		t.Cancel()
	}
	if feed != nil {
		feed.Close()
	}
}

// Snapshot is a read-only view for the debug server.
type Snapshot struct {
	OwnerID       string       `json:"owner_id"`
	Jobs          []domain.Job `json:"jobs"`
	Notifications int          `json:"notifications"`
	Unread        int          `json:"unread"`
}

// State returns a point-in-time snapshot of the session.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	jobs := make([]domain.Job, 0, len(s.trackers))
	for _, t := range s.trackers {
		jobs = append(jobs, t.Snapshot())
	}
	s.mu.Unlock()

	return Snapshot{
		OwnerID:       s.ownerID,
		Jobs:          jobs,
		Notifications: len(s.notifications.List()),
		Unread:        s.notifications.UnreadCount(),
	}
}

func (s *Session) consumeFeed(feed stream.Subscription) {
	for ev := range feed.Events() {
		var n domain.Notification
		if err := json.Unmarshal(ev.Data, &n); err != nil {
			s.log.Warn("dropping malformed notification", "error", err)
			continue
		}
		n.OwnerID = s.ownerID
		s.notifications.Upsert(n)
	}
}
