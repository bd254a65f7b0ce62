package stream

import (
	"context"
	"sync"
)

// MemorySource is an in-process fan-out hub. It backs local development and
// tests, and is the reference implementation of the detach semantics: both
// publish and close hold the hub lock, so an event published after Close
// returns can never reach the closed subscription.
type MemorySource struct {
	mu     sync.Mutex
	subs   map[string][]*memorySub
	closed bool
}

// NewMemorySource creates an empty hub.
func NewMemorySource() *MemorySource {
	return &MemorySource{subs: make(map[string][]*memorySub)}
}

type memorySub struct {
	source *MemorySource
	topic  string
	events chan Event
	done   bool
}

func (s *memorySub) Events() <-chan Event {
	return s.events
}

func (s *memorySub) Close() {
	s.source.mu.Lock()
	defer s.source.mu.Unlock()
	s.source.detach(s)
}

// Subscribe attaches a listener to the topic.
func (m *MemorySource) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &memorySub{
		source: m,
		topic:  topic,
		events: make(chan Event, 64),
	}
	m.subs[topic] = append(m.subs[topic], sub)

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}

	return sub, nil
}

// Publish delivers an event to every current subscriber of the topic.
// Subscribers that have fallen behind their buffer drop the event rather
// than block the hub.
func (m *MemorySource) Publish(topic string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, sub := range m.subs[topic] {
		select {
		case sub.events <- Event{Topic: topic, Data: data}:
		default:
		}
	}
}

// Close shuts the hub down and detaches every subscription.
func (m *MemorySource) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, subs := range m.subs {
		for _, sub := range subs {
			if !sub.done {
				sub.done = true
				close(sub.events)
			}
		}
	}
	m.subs = make(map[string][]*memorySub)
}

// detach removes one subscription. Caller holds the lock.
func (m *MemorySource) detach(s *memorySub) {
	if s.done {
		return
	}
	s.done = true
	close(s.events)

	subs := m.subs[s.topic]
	for i, cand := range subs {
		if cand == s {
			m.subs[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subs[s.topic]) == 0 {
		delete(m.subs, s.topic)
	}
}
