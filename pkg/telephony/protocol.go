// Package telephony speaks the provider's bidirectional media-stream protocol:
// decoding inbound control frames, relaying audio to the model connection, and
// issuing call-control actions through the provider's REST API.
package telephony

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stream frame event kinds. The relay parses exactly these three; anything
// else is ignored.
const (
	EventStart = "start"
	EventMedia = "media"
	EventStop  = "stop"
)

// IdentityParameter is the custom parameter name carrying the account
// identity, set by the inbound-call webhook's stream instruction.
const IdentityParameter = "account_id"

type StartPayload struct {
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	StreamSID        string            `json:"streamSid"`
	Tracks           []string          `json:"tracks,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type StopPayload struct {
	AccountSID string `json:"accountSid,omitempty"`
	CallSID    string `json:"callSid,omitempty"`
}

// StreamEvent is one inbound control frame.
type StreamEvent struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Stop      *StopPayload  `json:"stop,omitempty"`
}

// DecodeStreamEvent parses one inbound frame. Unknown event kinds decode
// successfully; callers skip them by switching on Event.
func DecodeStreamEvent(data []byte) (StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StreamEvent{}, fmt.Errorf("invalid stream frame: %w", err)
	}
	if strings.TrimSpace(ev.Event) == "" {
		return StreamEvent{}, fmt.Errorf("stream frame missing event")
	}
	switch ev.Event {
	case EventStart:
		if ev.Start == nil || strings.TrimSpace(ev.Start.StreamSID) == "" {
			return StreamEvent{}, fmt.Errorf("start frame missing streamSid")
		}
	case EventMedia:
		if ev.Media == nil {
			return StreamEvent{}, fmt.Errorf("media frame missing media payload")
		}
	}
	return ev, nil
}

type outboundMedia struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     mediaWrapper `json:"media"`
}

type mediaWrapper struct {
	Payload string `json:"payload"`
}

// MarshalMediaFrame wraps one encoded audio fragment into an outbound media
// frame addressed to the given stream.
func MarshalMediaFrame(streamSID, payload string) ([]byte, error) {
	if strings.TrimSpace(streamSID) == "" {
		return nil, fmt.Errorf("media frame requires a stream sid")
	}
	return json.Marshal(outboundMedia{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     mediaWrapper{Payload: payload},
	})
}
