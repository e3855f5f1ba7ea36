// Package realtime fans inventory events out to live websocket subscribers,
// either directly in process or through Redis pub/sub when several server
// instances share one catalog.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const defaultBuffer = 16

// Envelope is the frame written to websocket clients.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode wraps payload in an Envelope for topic.
func Encode(topic string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}
	return json.Marshal(Envelope{Event: topic, Data: data})
}

// Subscription receives the encoded frames of one topic.
type Subscription struct {
	topic   string
	ch      chan []byte
	dropped atomic.Int64
	once    sync.Once
}

// C delivers frames until the subscription is removed.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// Dropped counts frames discarded because the subscriber fell behind.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Hub is an in-process topic broker. Publishing never blocks: a subscriber
// whose buffer is full misses the frame.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer frames.
func NewHub(logger *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber on topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan []byte, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	h.mu.Unlock()

	sub.once.Do(func() { close(sub.ch) })
}

// Subscribers returns the number of live subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish encodes payload and delivers it to the topic's subscribers.
func (h *Hub) Publish(_ context.Context, topic string, payload interface{}) error {
	frame, err := Encode(topic, payload)
	if err != nil {
		return err
	}
	h.Broadcast(topic, frame)
	return nil
}

// Broadcast delivers an already encoded frame and returns how many
// subscribers received it.
func (h *Hub) Broadcast(topic string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- frame:
			delivered++
		default:
			sub.dropped.Add(1)
			h.logger.Debug("Dropped frame for slow subscriber", zap.String("topic", topic))
		}
	}
	return delivered
}

// Forward broadcasts a payload that is already JSON encoded, as received
// from a message broker.
func (h *Hub) Forward(topic string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("payload for %s is not valid JSON", topic)
	}
	frame, err := json.Marshal(Envelope{Event: topic, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", topic, err)
	}
	h.Broadcast(topic, frame)
	return nil
}
