package dispatcher

import (
	"sync"
	"testing"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	d := New()
	var mu sync.Mutex
	var gotA, gotB []Message

	d.Subscribe(TopicStateChanged, func(m Message) {
		mu.Lock()
		gotA = append(gotA, m)
		mu.Unlock()
	})
	d.Subscribe(TopicStateChanged, func(m Message) {
		mu.Lock()
		gotB = append(gotB, m)
		mu.Unlock()
	})

	d.Publish(TopicStateChanged, "zone.kitchen", 1000, "payload")

	if len(gotA) != 1 || len(gotB) != 1 {
		t.Fatalf("expected both subscribers to receive the message, got %d and %d", len(gotA), len(gotB))
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := New()
	count := 0
	unsub := d.Subscribe(TopicZoneEntered, func(Message) { count++ })

	d.Publish(TopicZoneEntered, "s", 0, nil)
	unsub()
	d.Publish(TopicZoneEntered, "s", 0, nil)

	if count != 1 {
		t.Errorf("expected exactly one delivery before unsubscribe, got %d", count)
	}
}

// FIFO per source: two publishes from the same source, invoked
// sequentially by the caller, must be observed by a subscriber in that
// same order even when the caller interleaves sources.
func TestFIFOOrderingPerSource(t *testing.T) {
	d := New()
	var mu sync.Mutex
	var order []string

	d.Subscribe(TopicPresenceChanged, func(m Message) {
		mu.Lock()
		order = append(order, m.Payload.(string))
		mu.Unlock()
	})

	d.Publish(TopicPresenceChanged, "sensor.hallway", 1, "first")
	d.Publish(TopicPresenceChanged, "sensor.hallway", 2, "second")
	d.Publish(TopicPresenceChanged, "sensor.hallway", 3, "third")

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order mismatch at %d: want %s got %s", i, want[i], order[i])
		}
	}
}

// Failure isolation: a panicking subscriber must not prevent delivery to
// others.
func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	d := New()
	delivered := false

	d.Subscribe(TopicMoodChanged, func(Message) {
		panic("boom")
	})
	d.Subscribe(TopicMoodChanged, func(Message) {
		delivered = true
	})

	d.Publish(TopicMoodChanged, "neuron-manager", 0, nil)

	if !delivered {
		t.Error("expected the second subscriber to still receive the message after the first panicked")
	}
}

func TestQueueDropOldestEvictsUnderPressure(t *testing.T) {
	q := NewQueue(2, ModeDropOldest)
	q.Push(Message{Seq: 1})
	q.Push(Message{Seq: 2})
	q.Push(Message{Seq: 3})

	if q.Dropped() != 1 {
		t.Errorf("expected exactly one drop, got %d", q.Dropped())
	}
	drained := q.Drain()
	if len(drained) != 2 || drained[0].Seq != 2 || drained[1].Seq != 3 {
		t.Errorf("expected the oldest entry evicted, got %+v", drained)
	}
}

func TestQueueBlockingPreservesEveryMessage(t *testing.T) {
	q := NewQueue(2, ModeBlocking)
	q.Push(Message{Seq: 1})
	q.Push(Message{Seq: 2})

	done := make(chan struct{})
	go func() {
		q.Push(Message{Seq: 3})
		close(done)
	}()

	m, ok := q.Pop()
	if !ok || m.Seq != 1 {
		t.Fatalf("expected to pop the oldest message first, got %+v ok=%v", m, ok)
	}
	<-done

	if q.Dropped() != 0 {
		t.Errorf("expected ModeBlocking to never drop, got %d", q.Dropped())
	}
}

func TestHandlerCanFeedOwnQueue(t *testing.T) {
	d := New()
	q := NewQueue(8, ModeDropOldest)
	d.Subscribe(TopicRuleDiscovered, q.Push)

	d.Publish(TopicRuleDiscovered, "miner", 10, "rule-1")

	m, ok := q.Pop()
	if !ok || m.Payload != "rule-1" {
		t.Errorf("expected the queue to receive the published message, got %+v ok=%v", m, ok)
	}
}
