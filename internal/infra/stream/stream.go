// Package stream abstracts the push channel that delivers job progress and
// notification documents. Consumers subscribe to a topic and receive raw
// payloads; the concrete delivery mechanism (in-process, redis pub/sub,
// server-sent events) is interchangeable behind the Source interface.
package stream

import "context"

// Event is one raw push message on a topic. The payload is a JSON document
// whose shape depends on the topic family.
type Event struct {
	Topic string
	Data  []byte
}

// Subscription is a live attachment to one topic. Closing it detaches the
// listener synchronously: events delivered to the source strictly after
// Close returns are never observed on Events.
type Subscription interface {
	// Events yields messages in delivery order. The channel is closed when
	// the subscription is closed or the source shuts down.
	Events() <-chan Event

	// Close detaches the subscription. Safe to call more than once.
	Close()
}

// Source produces subscriptions. Implementations must support independent
// concurrent subscriptions on distinct topics.
type Source interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// JobTopic returns the topic carrying progress events for a job id.
func JobTopic(jobID string) string {
	return "jobs." + jobID
}

// NotificationTopic returns the topic carrying notification documents for
// an owner.
func NotificationTopic(ownerID string) string {
	return "notifications." + ownerID
}
