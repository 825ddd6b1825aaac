package models

import "time"

// MStreamEvent is one value update delivered by a stream subscription.
// Only Price is interpreted by the operators; everything else rides along in Fields.
type MStreamEvent struct {
	Symbol     string                 `json:"symbol"`
	Price      float64                `json:"price"`
	Timestamp  int64                  `json:"timestamp"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	ReceivedAt time.Time              `json:"received_at"`
}

// -----------------------------------------------------------------------------

// MStreamUpdate pairs a new event with the one it replaced (zero value on the first update).
type MStreamUpdate struct {
	Event    MStreamEvent `json:"event"`
	Previous MStreamEvent `json:"previous"`
}

// -----------------------------------------------------------------------------

// Field returns an opaque field from the event, falling back to the typed members.
func (e MStreamEvent) Field(key string) (interface{}, bool) {
	switch key {
	case "price":
		return e.Price, true
	case "timestamp":
		return e.Timestamp, true
	}
	v, ok := e.Fields[key]
	return v, ok
}
