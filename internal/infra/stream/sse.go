package stream

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SSESource delivers events over a Server-Sent-Events endpoint. The topic is
// passed as a query parameter; each SSE data line is one event payload.
type SSESource struct {
	endpoint   string
	httpClient *http.Client
}

// NewSSESource creates a source reading from the given SSE endpoint.
func NewSSESource(endpoint string) *SSESource {
	return &SSESource{
		endpoint: endpoint,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Subscribe opens a streaming GET for the topic.
func (s *SSESource) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.endpoint+"?topic="+topic, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open stream: http %d", resp.StatusCode)
	}

	sub := &sseSub{
		cancel: cancel,
		events: make(chan Event, 64),
	}
	go sub.pump(resp, topic)
	return sub, nil
}

type sseSub struct {
	cancel context.CancelFunc
	events chan Event
	once   sync.Once
}

func (s *sseSub) pump(resp *http.Response, topic string) {
	defer close(s.events)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if data.Len() > 0 {
				s.events <- Event{Topic: topic, Data: []byte(data.String())}
				data.Reset()
			}
		}
		// Comment lines (":") and other fields are ignored.
	}
}

func (s *sseSub) Events() <-chan Event {
	return s.events
}

func (s *sseSub) Close() {
	s.once.Do(s.cancel)
}
