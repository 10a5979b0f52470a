package dispatcher

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/homecopilot/core/internal/logging"
)

// Handler receives a delivered message. Handlers MUST NOT block on external
// I/O; a handler that wants asynchronous processing should push onto its
// own Queue and return immediately.
type Handler func(Message)

type subscription struct {
	id      uint64
	topic   Topic
	handler Handler
}

// Dispatcher is the in-process pub/sub bus (§4.7). Publish is synchronous:
// it invokes every subscriber of a topic in registration order before
// returning. A source's publishes are serialized against each other (FIFO
// per source) via a per-source lock; publishes from different sources may
// proceed concurrently.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[Topic][]*subscription
	seq  uint64
	next uint64

	sourceMu sync.Mutex
	sources  map[string]*sync.Mutex
}

// New returns an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		subs:    make(map[Topic][]*subscription),
		sources: make(map[string]*sync.Mutex),
	}
}

// Subscribe registers handler for topic, returning an unsubscribe func.
func (d *Dispatcher) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := atomic.AddUint64(&d.next, 1)
	sub := &subscription{id: id, topic: topic, handler: handler}
	d.subs[topic] = append(d.subs[topic], sub)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		list := d.subs[topic]
		for i, s := range list {
			if s.id == id {
				d.subs[topic] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers payload to every current subscriber of topic, in
// registration order, blocking until all have been invoked. Publishes
// sharing the same source are serialized in call order; an panic inside one
// subscriber's handler is recovered and logged, and delivery continues to
// the remaining subscribers (failure isolation).
func (d *Dispatcher) Publish(topic Topic, source string, atMs int64, payload any) {
	lock := d.sourceLock(source)
	lock.Lock()
	defer lock.Unlock()

	msg := Message{
		Topic:   topic,
		Source:  source,
		Seq:     atomic.AddUint64(&d.seq, 1),
		AtMs:    atMs,
		Payload: payload,
	}

	d.mu.RLock()
	subs := append([]*subscription(nil), d.subs[topic]...)
	d.mu.RUnlock()

	log := logging.Named("dispatcher")
	for _, sub := range subs {
		deliver(sub.handler, msg, log)
	}
}

func deliver(h Handler, msg Message, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("topic", string(msg.Topic)).
				Str("source", msg.Source).
				Interface("panic", r).
				Msg("subscriber handler panicked, delivery continues")
		}
	}()
	h(msg)
}

func (d *Dispatcher) sourceLock(source string) *sync.Mutex {
	d.sourceMu.Lock()
	defer d.sourceMu.Unlock()
	lock, ok := d.sources[source]
	if !ok {
		lock = &sync.Mutex{}
		d.sources[source] = lock
	}
	return lock
}
