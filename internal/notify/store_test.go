package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adpulse/dashcore/internal/core/domain"
)

type remoteRecorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *remoteRecorder) DeleteNotification(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	return r.err
}

func (r *remoteRecorder) deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func at(offset time.Duration) time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(offset)
}

func TestUpsertDeduplicatesById(t *testing.T) {
	s := NewStore(nil)

	s.Upsert(domain.Notification{ID: "n1", Message: "first", CreatedAt: at(0)})
	s.Upsert(domain.Notification{ID: "n1", Message: "second", Read: true, CreatedAt: at(0)})

	list := s.List()
	require.Len(t, list, 1, "redelivery must replace, not duplicate")
	require.Equal(t, "second", list[0].Message)
	require.True(t, list[0].Read)
}

func TestUpsertKeepsSortPositionUnlessTimestampChanged(t *testing.T) {
	s := NewStore(nil)

	s.Upsert(domain.Notification{ID: "old", CreatedAt: at(0)})
	s.Upsert(domain.Notification{ID: "mid", CreatedAt: at(time.Minute)})
	s.Upsert(domain.Notification{ID: "new", CreatedAt: at(2 * time.Minute)})

	// Toggling a mutable field keeps the position.
	s.Upsert(domain.Notification{ID: "mid", Read: true, CreatedAt: at(time.Minute)})
	ids := idsOf(s.List())
	require.Equal(t, []string{"new", "mid", "old"}, ids)

	// A changed timestamp reorders.
	s.Upsert(domain.Notification{ID: "old", CreatedAt: at(3 * time.Minute)})
	ids = idsOf(s.List())
	require.Equal(t, []string{"old", "new", "mid"}, ids)
}

func TestListOrdersNewestFirstWithInsertionTiebreak(t *testing.T) {
	s := NewStore(nil)

	s.Upsert(domain.Notification{ID: "a", CreatedAt: at(time.Hour)})
	s.Upsert(domain.Notification{ID: "tie1", CreatedAt: at(time.Minute)})
	s.Upsert(domain.Notification{ID: "tie2", CreatedAt: at(time.Minute)})

	// Inserting an older notification must not move it to the front.
	s.Upsert(domain.Notification{ID: "stale", CreatedAt: at(-time.Hour)})

	require.Equal(t, []string{"a", "tie1", "tie2", "stale"}, idsOf(s.List()))
}

func TestUpsertAssignsLocalIdWhenMissing(t *testing.T) {
	s := NewStore(nil)
	n := s.Upsert(domain.Notification{Message: "local", CreatedAt: at(0)})
	require.NotEmpty(t, n.ID)
	got, ok := s.Get(n.ID)
	require.True(t, ok)
	require.Equal(t, "local", got.Message)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(domain.Notification{ID: "n1", CreatedAt: at(0)})
	s.Upsert(domain.Notification{ID: "n2", CreatedAt: at(time.Minute)})
	s.Upsert(domain.Notification{ID: "n3", CreatedAt: at(2 * time.Minute), Read: true})

	require.Equal(t, 2, s.UnreadCount())

	s.MarkRead("n1")
	require.Equal(t, 1, s.UnreadCount())

	s.MarkRead("unknown") // no-op
	require.Equal(t, 1, s.UnreadCount())

	s.MarkAllRead()
	require.Equal(t, 0, s.UnreadCount())
}

func TestRemoveIsLocalFirstAndBestEffortRemote(t *testing.T) {
	remote := &remoteRecorder{err: errors.New("backend down")}
	s := NewStore(remote)
	s.Upsert(domain.Notification{ID: "n1", CreatedAt: at(0)})

	s.Remove(context.Background(), "n1")

	// Local delete is immediate regardless of the remote outcome.
	_, ok := s.Get("n1")
	require.False(t, ok)

	// The remote call fires, and its failure is not rolled back.
	require.Eventually(t, func() bool {
		return len(remote.deleted()) == 1
	}, time.Second, 10*time.Millisecond)
	_, ok = s.Get("n1")
	require.False(t, ok, "remote failure must not resurrect the notification")
}

func TestRemoveUnknownIdSkipsRemote(t *testing.T) {
	remote := &remoteRecorder{}
	s := NewStore(remote)

	s.Remove(context.Background(), "ghost")

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, remote.deleted())
}

func TestClearDropsEverything(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(domain.Notification{ID: "n1", CreatedAt: at(0)})
	s.Upsert(domain.Notification{ID: "n2", CreatedAt: at(time.Minute)})

	s.Clear()
	require.Empty(t, s.List())
	require.Equal(t, 0, s.UnreadCount())
}

func idsOf(list []domain.Notification) []string {
	ids := make([]string, len(list))
	for i, n := range list {
		ids[i] = n.ID
	}
	return ids
}
