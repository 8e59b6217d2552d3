package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	ps := New()
	if ps == nil {
		t.Fatal("New() returned nil")
	}
	if ps.subscribers == nil {
		t.Error("subscribers map should be initialized")
	}
}

func TestSubscribe(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicDeviceFrame, "", 10)
	if sub == nil {
		t.Fatal("Subscribe() returned nil")
	}
	if sub.Topic != TopicDeviceFrame {
		t.Errorf("Expected topic %s, got %s", TopicDeviceFrame, sub.Topic)
	}
	if cap(sub.Channel) != 10 {
		t.Errorf("Expected channel buffer size 10, got %d", cap(sub.Channel))
	}
	if count := ps.SubscriberCount(TopicDeviceFrame); count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}
}

func TestSubscribe_UniqueIDs(t *testing.T) {
	ps := New()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		sub := ps.Subscribe(TopicDisplay, "", 1)
		if seen[sub.ID] {
			t.Fatalf("Duplicate subscriber ID %q", sub.ID)
		}
		seen[sub.ID] = true
	}
}

func TestUnsubscribe(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicDeviceFrame, "", 10)
	ps.Unsubscribe(sub)

	if count := ps.SubscriberCount(TopicDeviceFrame); count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}

	select {
	case _, ok := <-sub.Channel:
		if ok {
			t.Error("Channel should be closed after unsubscribe")
		}
	default:
		t.Error("Channel should be closed and readable")
	}
}

func TestUnsubscribe_NonExistent(t *testing.T) {
	ps := New()

	fakeSub := &Subscriber{
		ID:      "fake-id",
		Topic:   TopicDeviceFrame,
		Channel: make(chan Message, 1),
	}

	// Should not panic
	ps.Unsubscribe(fakeSub)
}

func TestPublish(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicSequencePlayback, "", 10)
	ps.Publish(TopicSequencePlayback, "", "test message")

	select {
	case msg := <-sub.Channel:
		if msg.Topic != TopicSequencePlayback {
			t.Errorf("Expected topic %s, got %s", TopicSequencePlayback, msg.Topic)
		}
		if msg.Payload != "test message" {
			t.Errorf("Expected 'test message', got '%v'", msg.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timed out waiting for message")
	}
}

func TestPublish_WithFilter(t *testing.T) {
	ps := New()

	subWithFilter := ps.Subscribe(TopicSequencePlayback, "intro", 10)
	subOtherFilter := ps.Subscribe(TopicSequencePlayback, "outro", 10)
	subNoFilter := ps.Subscribe(TopicSequencePlayback, "", 10)

	ps.Publish(TopicSequencePlayback, "intro", "msg for intro")

	select {
	case msg := <-subWithFilter.Channel:
		if msg.Payload != "msg for intro" {
			t.Errorf("Expected 'msg for intro', got '%v'", msg.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("subWithFilter should have received the message")
	}

	select {
	case <-subOtherFilter.Channel:
		t.Error("subOtherFilter should not have received the message")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-subNoFilter.Channel:
	case <-time.After(100 * time.Millisecond):
		t.Error("subNoFilter should have received the message")
	}
}

func TestPublish_ChannelFull(t *testing.T) {
	ps := New()

	sub := ps.Subscribe(TopicDeviceFrame, "", 1)
	ps.Publish(TopicDeviceFrame, "", "msg1")

	done := make(chan bool, 1)
	go func() {
		ps.Publish(TopicDeviceFrame, "", "msg2") // Should be dropped
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Publish blocked on full channel")
	}

	msg := <-sub.Channel
	if msg.Payload != "msg1" {
		t.Errorf("Expected 'msg1', got '%v'", msg.Payload)
	}
}

func TestPublish_NilPubSub(t *testing.T) {
	var ps *PubSub
	// Should not panic
	ps.Publish(TopicDisplay, "", "ignored")
	ps.PublishAll(TopicDisplay, "ignored")
}

func TestPublishAll(t *testing.T) {
	ps := New()

	sub1 := ps.Subscribe(TopicTrivia, "filter1", 10)
	sub2 := ps.Subscribe(TopicTrivia, "filter2", 10)
	sub3 := ps.Subscribe(TopicTrivia, "", 10)

	ps.PublishAll(TopicTrivia, "broadcast")

	for i, sub := range []*Subscriber{sub1, sub2, sub3} {
		select {
		case msg := <-sub.Channel:
			if msg.Payload != "broadcast" {
				t.Errorf("Subscriber %d: Expected 'broadcast', got '%v'", i, msg.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("Subscriber %d timed out waiting for message", i)
		}
	}
}

func TestConcurrentOperations(t *testing.T) {
	ps := New()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := ps.Subscribe(TopicDeviceFrame, "", 10)
			select {
			case <-sub.Channel:
			case <-time.After(200 * time.Millisecond):
			}
			ps.Unsubscribe(sub)
		}()
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ps.Publish(TopicDeviceFrame, "", i)
		}(i)
	}

	wg.Wait()
}

func TestTopicConstants(t *testing.T) {
	seen := make(map[Topic]bool)
	for _, topic := range AllTopics {
		if seen[topic] {
			t.Errorf("Duplicate topic: %s", topic)
		}
		seen[topic] = true
	}
	if len(seen) != 7 {
		t.Errorf("Expected 7 topics, got %d", len(seen))
	}
}
