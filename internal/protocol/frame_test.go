package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// TestFrameRoundTrip verifies payloads survive the encode/decode cycle
// and that payload-free frames omit the data field entirely.
func TestFrameRoundTrip(t *testing.T) {
	frame, err := NewFrame(EventJoinRoom, JoinRoomRequest{RoomID: "7"})
	if err != nil {
		t.Fatalf("new frame: %v", err)
	}
	if frame.Event != EventJoinRoom {
		t.Fatalf("event = %q", frame.Event)
	}

	encoded, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	var decoded Frame
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	var req JoinRoomRequest
	if err := decoded.DecodeData(&req); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if req.RoomID != "7" {
		t.Fatalf("room id = %q, want 7", req.RoomID)
	}

	bare, err := NewFrame("ping", nil)
	if err != nil {
		t.Fatalf("new bare frame: %v", err)
	}
	encoded, err = json.Marshal(bare)
	if err != nil {
		t.Fatalf("marshal bare frame: %v", err)
	}
	if strings.Contains(string(encoded), "data") {
		t.Fatalf("bare frame carries data field: %s", encoded)
	}
}

// TestDecodeDataWithoutPayload verifies the sentinel for missing data.
func TestDecodeDataWithoutPayload(t *testing.T) {
	frame := Frame{Event: "ping"}
	var out map[string]any
	if err := frame.DecodeData(&out); !errors.Is(err, ErrNoPayload) {
		t.Fatalf("decode empty data = %v, want ErrNoPayload", err)
	}
}

// TestNewFrameRejectsUnencodablePayload verifies marshal failures surface
// instead of producing a half-built frame.
func TestNewFrameRejectsUnencodablePayload(t *testing.T) {
	if _, err := NewFrame("bad", func() {}); err == nil {
		t.Fatalf("unencodable payload accepted")
	}
}
