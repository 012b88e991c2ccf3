package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Hub is an in-process publisher used when no Redis is configured. Slow
// subscribers lose events instead of blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint]map[*hubSubscription]struct{}
	buffer int
}

var (
	_ Publisher  = (*Hub)(nil)
	_ Subscriber = (*Hub)(nil)
)

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 8
	}
	return &Hub{subs: map[uint]map[*hubSubscription]struct{}{}, buffer: buffer}
}

type hubSubscription struct {
	hub       *Hub
	sessionID uint
	out       chan []byte
	once      sync.Once
}

func (s *hubSubscription) Messages() <-chan []byte { return s.out }

func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs[s.sessionID], s)
		if len(s.hub.subs[s.sessionID]) == 0 {
			delete(s.hub.subs, s.sessionID)
		}
		s.hub.mu.Unlock()
		close(s.out)
	})
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, sessionID uint) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &hubSubscription{hub: h, sessionID: sessionID, out: make(chan []byte, h.buffer)}

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = map[*hubSubscription]struct{}{}
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	return sub, nil
}

func (h *Hub) PublishSessionClosed(_ context.Context, event SessionClosedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session closed event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[event.SessionID] {
		select {
		case sub.out <- payload:
		default:
		}
	}

	return nil
}
