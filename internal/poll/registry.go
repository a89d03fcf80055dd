package poll

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Subscriber receives broadcast values for a topic.
type Subscriber[V any] func(V) error

type subscription[V any] struct {
	id uint64
	fn Subscriber[V]
}

// Registry holds subscriber callbacks per topic. Broadcast is synchronous and
// delivers in subscription order; a subscriber that fails or panics does not
// stop delivery to the ones after it.
type Registry[V any] struct {
	mu     sync.Mutex
	nextID uint64
	topics map[string][]subscription[V]
	idle   map[string]func()
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry[V any](logger *slog.Logger) *Registry[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry[V]{
		topics: make(map[string][]subscription[V]),
		idle:   make(map[string]func()),
		logger: logger.With(slog.String("component", "poll_registry")),
	}
}

// Subscribe registers fn for topic and returns the function that removes it.
// The returned function is idempotent.
func (r *Registry[V]) Subscribe(topic string, fn Subscriber[V]) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.topics[topic] = append(r.topics[topic], subscription[V]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(topic, id) })
	}
}

// OnIdle registers fn to run whenever the last subscriber of topic leaves.
func (r *Registry[V]) OnIdle(topic string, fn func()) {
	r.mu.Lock()
	r.idle[topic] = fn
	r.mu.Unlock()
}

func (r *Registry[V]) remove(topic string, id uint64) {
	r.mu.Lock()
	subs := r.topics[topic]
	kept := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}

	var onIdle func()
	if len(kept) == 0 {
		delete(r.topics, topic)
		if len(subs) > 0 {
			onIdle = r.idle[topic]
		}
	} else {
		r.topics[topic] = kept
	}
	r.mu.Unlock()

	if onIdle != nil {
		onIdle()
	}
}

// Count returns the number of subscribers on topic.
func (r *Registry[V]) Count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[topic])
}

// Broadcast delivers v to every subscriber of topic in subscription order.
// Failures are logged and returned joined; they never cut delivery short.
func (r *Registry[V]) Broadcast(topic string, v V) error {
	r.mu.Lock()
	subs := make([]subscription[V], len(r.topics[topic]))
	copy(subs, r.topics[topic])
	r.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := deliver(s, v); err != nil {
			r.logger.Warn("subscriber failed",
				slog.String("topic", topic),
				slog.Uint64("subscriber", s.id),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver[V any](s subscription[V], v V) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("poll: subscriber %d panicked: %v", s.id, rec)
		}
	}()
	if err := s.fn(v); err != nil {
		return fmt.Errorf("poll: subscriber %d: %w", s.id, err)
	}
	return nil
}
