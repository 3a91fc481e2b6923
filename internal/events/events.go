package events

import (
	"encoding/json"
	"time"
)

// Event types published by the engine.
const (
	TypeProcessorStarted = "processor.started"
	TypeProcessorStopped = "processor.stopped"
	TypeProcessorLog     = "processor.log"
	TypeItemProcessed    = "item.processed"
	TypeConfigUpdated    = "config.updated"
)

// Event is the envelope every SSE frame carries.
type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ProcessorStarted is the payload of TypeProcessorStarted.
type ProcessorStarted struct {
	Source   string        `json:"source"`
	Interval time.Duration `json:"interval_ns"`
}

// ItemProcessed is the payload of TypeItemProcessed. Outcome is SUCCESS or
// ERROR; Detail carries the failure text.
type ItemProcessed struct {
	ItemID  string `json:"item_id"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// MakeEvent encodes one envelope. A payload that fails to encode is dropped
// and the envelope goes out without data.
func MakeEvent(reqID, typ string, v int, data any) string {
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			e.Data = raw
		}
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// Decode reads an envelope and, when out is non-nil, its payload.
func Decode(frame string, out any) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(frame), &e); err != nil {
		return Event{}, err
	}
	if out != nil && len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, out); err != nil {
			return e, err
		}
	}
	return e, nil
}
