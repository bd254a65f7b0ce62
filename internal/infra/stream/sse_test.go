package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSSESourceDeliversEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "jobs.j1", r.URL.Query().Get("topic"))
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)

		fmt.Fprint(w, "data: {\"progress\":10}\n\n")
		fl.Flush()
		fmt.Fprint(w, ": keepalive\n\n")
		fl.Flush()
		fmt.Fprint(w, "data: {\"progress\":100}\n\n")
		fl.Flush()

		<-r.Context().Done()
	}))
	defer srv.Close()

	src := NewSSESource(srv.URL)
	sub, err := src.Subscribe(context.Background(), "jobs.j1")
	require.NoError(t, err)
	defer sub.Close()

	events := collect(sub, 2, 2*time.Second)
	require.Len(t, events, 2)
	require.Equal(t, `{"progress":10}`, string(events[0].Data))
	require.Equal(t, `{"progress":100}`, string(events[1].Data))
}

func TestSSESourceCloseEndsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	src := NewSSESource(srv.URL)
	sub, err := src.Subscribe(context.Background(), "jobs.j1")
	require.NoError(t, err)

	sub.Close()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Events():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSSESourceNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewSSESource(srv.URL)
	_, err := src.Subscribe(context.Background(), "jobs.j1")
	require.Error(t, err)
}
