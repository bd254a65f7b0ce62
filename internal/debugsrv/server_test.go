package debugsrv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adpulse/dashcore/internal/infra/api"
	"github.com/adpulse/dashcore/internal/infra/stream"
	"github.com/adpulse/dashcore/internal/session"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	src := stream.NewMemorySource()
	t.Cleanup(src.Close)

	sess, err := session.New(session.Config{
		OwnerID: "owner-1",
		API:     api.Config{BaseURL: "http://localhost:0"},
		Tokens:  api.TokenProviderFunc(func(ctx context.Context) (string, error) { return "tok", nil }),
		Source:  src,
	})
	require.NoError(t, err)

	return NewServer(sess, 0).server.Handler
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestState(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, "owner-1", snap.OwnerID)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
