// Package pubsub fans out exhibit events to websocket clients and internal listeners.
package pubsub

import (
	"strconv"
	"sync"
)

// Topic represents a subscription topic.
type Topic string

const (
	TopicDeviceFrame      Topic = "DEVICE_FRAME"
	TopicConnectionState  Topic = "CONNECTION_STATE_CHANGED"
	TopicSequencePlayback Topic = "SEQUENCE_PLAYBACK_UPDATED"
	TopicDisplay          Topic = "DISPLAY_UPDATED"
	TopicTrivia           Topic = "TRIVIA_UPDATED"
	TopicFragmentFound    Topic = "FRAGMENT_FOUND"
	TopicTagScanned       Topic = "TAG_SCANNED"
)

// AllTopics lists every topic streamed to kiosk clients.
var AllTopics = []Topic{
	TopicDeviceFrame,
	TopicConnectionState,
	TopicSequencePlayback,
	TopicDisplay,
	TopicTrivia,
	TopicFragmentFound,
	TopicTagScanned,
}

// Message is what subscribers receive.
type Message struct {
	Topic   Topic       `json:"topic"`
	Payload interface{} `json:"payload"`
}

// Subscriber represents a subscription channel.
type Subscriber struct {
	ID      string
	Topic   Topic
	Filter  string // Optional filter value (e.g., sequence name)
	Channel chan Message
}

// PubSub manages subscriptions and message distribution.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]*Subscriber
	nextID      int
}

// New creates a new PubSub instance.
func New() *PubSub {
	return &PubSub{
		subscribers: make(map[Topic][]*Subscriber),
	}
}

// Subscribe creates a new subscription for a topic.
func (ps *PubSub) Subscribe(topic Topic, filter string, bufferSize int) *Subscriber {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.nextID++
	sub := &Subscriber{
		ID:      strconv.Itoa(ps.nextID),
		Topic:   topic,
		Filter:  filter,
		Channel: make(chan Message, bufferSize),
	}

	ps.subscribers[topic] = append(ps.subscribers[topic], sub)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (ps *PubSub) Unsubscribe(sub *Subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	subs := ps.subscribers[sub.Topic]
	for i, s := range subs {
		if s.ID == sub.ID {
			close(s.Channel)
			next := make([]*Subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			ps.subscribers[sub.Topic] = next
			return
		}
	}
}

// Publish sends a message to all subscribers of a topic.
// If filter is non-empty, only sends to subscribers with matching filter or empty filter.
func (ps *PubSub) Publish(topic Topic, filter string, payload interface{}) {
	if ps == nil {
		return
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()

	msg := Message{Topic: topic, Payload: payload}
	for _, sub := range ps.subscribers[topic] {
		if sub.Filter == "" || filter == "" || sub.Filter == filter {
			select {
			case sub.Channel <- msg:
			default:
				// Channel full, skip (non-blocking)
			}
		}
	}
}

// PublishAll sends a message to all subscribers of a topic regardless of filter.
func (ps *PubSub) PublishAll(topic Topic, payload interface{}) {
	ps.Publish(topic, "", payload)
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) SubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}
