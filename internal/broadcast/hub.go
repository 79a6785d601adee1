package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Subscriber routes room events to a buffered channel, bridging the game
// layer to a transport stream.
type Subscriber struct {
	uid    string
	events chan []byte
	mu     sync.Mutex
	closed bool
}

// NewSubscriber creates a Subscriber for the given player UID.
//
// Precondition: uid must be non-empty.
// Postcondition: Returns a Subscriber with an open events channel.
func NewSubscriber(uid string, bufferSize int) *Subscriber {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Subscriber{
		uid:    uid,
		events: make(chan []byte, bufferSize),
	}
}

// UID returns the subscriber's player identifier.
func (s *Subscriber) UID() string {
	return s.uid
}

// Push enqueues data for delivery.
//
// Postcondition: Data is enqueued, or an error if the subscriber is closed
// or its buffer is full.
func (s *Subscriber) Push(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("subscriber %s is closed", s.uid)
	}
	select {
	case s.events <- data:
		return nil
	default:
		return fmt.Errorf("subscriber %s event buffer full", s.uid)
	}
}

// Events returns the read-only events channel. The transport goroutine
// reads from this channel to deliver events to the client.
func (s *Subscriber) Events() <-chan []byte {
	return s.events
}

// Close marks the subscriber as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an
// error. Close is idempotent.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// Hub fans room events out to every subscriber in a room. Delivery is fire
// and forget: a slow or closed subscriber never blocks the sender, and a
// failed delivery is logged and dropped.
// All methods are safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]*Subscriber // roomCode → uid → subscriber
	logger   *zap.Logger
	capacity int
}

// NewHub creates an empty Hub whose subscribers buffer up to capacity
// pending events each.
func NewHub(logger *zap.Logger, capacity int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Subscriber),
		logger:   logger,
		capacity: capacity,
	}
}

// Subscribe registers a subscriber for uid in roomCode, replacing and
// closing any prior subscription for the same uid.
//
// Precondition: roomCode and uid must be non-empty.
// Postcondition: Returns the new Subscriber; subsequent Send calls for the
// room reach it.
func (h *Hub) Subscribe(roomCode, uid string) *Subscriber {
	sub := NewSubscriber(uid, h.capacity)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[string]*Subscriber)
	}
	if prev, ok := h.rooms[roomCode][uid]; ok {
		_ = prev.Close()
	}
	h.rooms[roomCode][uid] = sub
	return sub
}

// Unsubscribe removes and closes the subscription for uid in roomCode.
// Unknown subscriptions are a no-op.
func (h *Hub) Unsubscribe(roomCode, uid string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[roomCode]
	if !ok {
		return
	}
	if sub, ok := subs[uid]; ok {
		_ = sub.Close()
		delete(subs, uid)
	}
	if len(subs) == 0 {
		delete(h.rooms, roomCode)
	}
}

// Send marshals each event and pushes it to every subscriber in roomCode.
// Marshal or push failures are logged and skipped; Send never returns an
// error and never blocks on a full subscriber.
func (h *Hub) Send(roomCode string, events ...Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.rooms[roomCode]))
	for _, sub := range h.rooms[roomCode] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("marshaling broadcast event",
				zap.String("room", roomCode),
				zap.String("event_type", ev.EventType()),
				zap.Error(err))
			continue
		}
		for _, sub := range subs {
			if err := sub.Push(data); err != nil {
				h.logger.Warn("dropping broadcast event",
					zap.String("room", roomCode),
					zap.String("uid", sub.UID()),
					zap.String("event_type", ev.EventType()),
					zap.Error(err))
			}
		}
	}
}

// SubscriberCount returns the number of subscribers in roomCode.
func (h *Hub) SubscriberCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}
