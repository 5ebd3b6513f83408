package pos

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order:created"
	EventOrderUpdated       = "order:updated"
	EventOrderStatusUpdated = "order:statusUpdated"
	EventOrderDeleted       = "order:deleted"
	EventOrderCompleted     = "order:completed"
	EventTableUpdated       = "table:updated"
)

// Envelope wraps every event on the channel. Payload is the full updated
// entity (a RemoteOrder or a Table), never a diff — which is why the boards
// merge by replace-by-id rather than patching fields.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // entity id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, entityID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: entityID,
		Payload:       b,
	}, nil
}

// OrderEvent reports whether the envelope carries a RemoteOrder payload.
func (e Envelope) OrderEvent() bool {
	switch e.EventType {
	case EventOrderCreated, EventOrderUpdated, EventOrderStatusUpdated,
		EventOrderDeleted, EventOrderCompleted:
		return true
	}
	return false
}
