// Package notify carries session notifications to the real-time channel.
// Delivery is best-effort and at-most-once: publishers never retry and a
// failed publish never undoes the change that triggered it.
package notify

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const EventSessionClosed = "session.closed"

// SessionClosedEvent is delivered to the participants of one session.
type SessionClosedEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	Type         string    `json:"type"`
	SessionID    uint      `json:"session_id"`
	RegisterID   uint      `json:"register_id"`
	OpenedBy     uint      `json:"opened_by"`
	ClosedBy     uint      `json:"closed_by"`
	ClosedByName string    `json:"closed_by_name"`
	ClosedAt     time.Time `json:"closed_at"`
	Participants []uint    `json:"participants"`
}

func NewSessionClosedEvent(sessionID, registerID, openedBy, closedBy uint, closedByName string, closedAt time.Time) SessionClosedEvent {
	participants := []uint{openedBy}
	if closedBy != openedBy {
		participants = append(participants, closedBy)
	}

	return SessionClosedEvent{
		EventID:      uuid.New(),
		Type:         EventSessionClosed,
		SessionID:    sessionID,
		RegisterID:   registerID,
		OpenedBy:     openedBy,
		ClosedBy:     closedBy,
		ClosedByName: closedByName,
		ClosedAt:     closedAt.UTC(),
		Participants: participants,
	}
}

func (e SessionClosedEvent) HasParticipant(userID uint) bool {
	return slices.Contains(e.Participants, userID)
}

// Publisher is the outbound notification port.
type Publisher interface {
	PublishSessionClosed(ctx context.Context, event SessionClosedEvent) error
}

// Subscription is a live feed of raw JSON events for one session.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Subscriber opens per-session feeds for the event stream endpoint.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID uint) (Subscription, error)
}

// Channel is the pub/sub channel scoped to one session's participants.
func Channel(prefix string, sessionID uint) string {
	return fmt.Sprintf("%s.%d", prefix, sessionID)
}
