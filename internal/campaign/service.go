// Package campaign wraps the generic request client with the typed campaign
// endpoints. Generation is a long-running backend job: Finalize returns a
// job id that the caller hands to a tracker, and Results is the tracker's
// one-shot completion fetch.
package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adpulse/dashcore/internal/infra/api"
)

// Service exposes the campaign backend surface.
type Service struct {
	client  *api.Client
	timeout time.Duration
}

// NewService creates a campaign service over the given request client.
func NewService(client *api.Client) *Service {
	return &Service{client: client, timeout: 30 * time.Second}
}

// Initiate starts a campaign from a goal and returns the follow-up
// questions the backend wants answered before generation.
func (s *Service) Initiate(ctx context.Context, goal string) ([]string, error) {
	resp, err := s.client.Send(ctx, api.Request{
		Method:  http.MethodPost,
		Path:    "/campaign/initiate",
		Body:    map[string]string{"goal": goal},
		Auth:    true,
		Timeout: s.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initiate campaign: %w", err)
	}

	var out struct {
		Questions []string `json:"questions"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// Finalize submits the answers and returns the id of the generation job.
func (s *Service) Finalize(ctx context.Context, goal string, answers []string) (string, error) {
	resp, err := s.client.Send(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/campaign/finalize",
		Body: map[string]any{
			"goal":    goal,
			"answers": answers,
		},
		Auth:    true,
		Timeout: s.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("finalize campaign: %w", err)
	}

	var out struct {
		CampaignID string `json:"campaign_id"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	return out.CampaignID, nil
}

// Results fetches the final payload for a completed job. The payload is
// opaque to the core and passed through to the UI.
func (s *Service) Results(ctx context.Context, jobID string) (json.RawMessage, error) {
	resp, err := s.client.Send(ctx, api.Request{
		Method:  http.MethodGet,
		Path:    "/campaign/results/" + jobID,
		Auth:    true,
		Timeout: s.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch results for job %s: %w", jobID, err)
	}
	return json.RawMessage(resp.Body), nil
}

// DeleteNotification removes a notification on the backend. Callers treat
// this as best-effort.
func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	_, err := s.client.Send(ctx, api.Request{
		Method:  http.MethodDelete,
		Path:    "/notifications/" + id,
		Auth:    true,
		Timeout: s.timeout,
	})
	if err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	return nil
}
