package protocol

import (
	"encoding/json"
	"errors"
)

// ErrNoPayload is returned when a frame carries no data to decode.
var ErrNoPayload = errors.New("frame has no payload")

// Frame wraps every event sent over the WebSocket connection. The Data
// field holds the event-specific payload and stays raw until the
// receiver knows which shape to decode it into.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame builds a frame for the given event, marshaling the payload.
func NewFrame(event string, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: data}, nil
}

// DecodeData unmarshals the frame payload into v.
func (f Frame) DecodeData(v any) error {
	if len(f.Data) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(f.Data, v)
}
