package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidTopic   = errors.New("invalid_topic")
)

// Event is a row change pushed to subscribers of a topic.
type Event struct {
	Topic      string          `json:"topic"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Topic builds the "table:column=value" key subscribers listen on.
func Topic(table, column, value string) string {
	return strings.TrimSpace(table) + ":" + strings.TrimSpace(column) + "=" + strings.TrimSpace(value)
}

// Hub fans events out to in-process subscribers and keeps a short
// replay buffer per topic for late joiners.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Event
	subs   map[uint64]chan Event
	nextID uint64
}

type Subscription struct {
	hub   *Hub
	topic string
	id    uint64
	ch    chan Event
	once  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Deliver hands event to local subscribers only. Topics without
// subscribers are dropped, and slow subscribers miss events rather than
// block the publisher.
func (h *Hub) Deliver(event Event) {
	if h == nil {
		return
	}
	topic := strings.TrimSpace(event.Topic)
	if topic == "" {
		return
	}

	h.mu.RLock()
	s := h.streams[topic]
	h.mu.RUnlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, event)
	if len(s.buffer) > h.bufferSize {
		s.buffer = s.buffer[len(s.buffer)-h.bufferSize:]
	}
	subs := make([]chan Event, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a live subscription plus the buffered backlog.
func (h *Hub) Subscribe(topic string) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	topic = strings.TrimSpace(topic)
	if topic == "" || !strings.Contains(topic, ":") {
		return nil, nil, ErrInvalidTopic
	}

	s := h.ensureStream(topic)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	s.subs[id] = ch
	backlog := append([]Event(nil), s.buffer...)
	s.mu.Unlock()

	return &Subscription{hub: h, topic: topic, id: id, ch: ch}, backlog, nil
}

func (h *Hub) ensureStream(topic string) *stream {
	h.mu.RLock()
	current := h.streams[topic]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[topic]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[topic] = current
	}
	return current
}

func (h *Hub) unsubscribe(topic string, id uint64) {
	h.mu.RLock()
	s := h.streams[topic]
	h.mu.RUnlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	delete(s.subs, id)
	remaining := len(s.subs)
	s.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[topic] != s {
		return
	}
	s.mu.Lock()
	if len(s.subs) == 0 {
		delete(h.streams, topic)
	}
	s.mu.Unlock()
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.topic, s.id)
	})
}
