// Package realtime manages the streaming connection to the speech model: one
// connection per call, configured for 8kHz mu-law passthrough, consuming model
// events and producing audio-append instructions.
package realtime

import (
	"encoding/json"
	"fmt"
)

// Event types produced on the model stream.
const (
	typeSessionUpdate          = "session.update"
	typeConversationItemCreate = "conversation.item.create"
	typeResponseCreate         = "response.create"
	typeInputAudioAppend       = "input_audio_buffer.append"
)

// Event types consumed from the model stream. Anything else is ignored.
const (
	EventAudioDelta        = "response.audio.delta"
	EventFunctionCallsDone = "response.function_call_arguments.done"
	EventResponseDone      = "response.done"
)

// Audio codec for both directions. The telephony provider streams 8kHz mu-law
// and the payloads are passed through without transcoding.
const audioFormatULaw = "g711_ulaw"

type turnDetection struct {
	Type string `json:"type"`
}

type tool struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type sessionConfig struct {
	TurnDetection     turnDetection `json:"turn_detection"`
	Voice             string        `json:"voice"`
	InputAudioFormat  string        `json:"input_audio_format"`
	OutputAudioFormat string        `json:"output_audio_format"`
	Temperature       float64       `json:"temperature"`
	Modalities        []string      `json:"modalities"`
	Instructions      string        `json:"instructions"`
	Tools             []tool        `json:"tools"`
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type conversationContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type conversationItem struct {
	Type    string                `json:"type"`
	Role    string                `json:"role"`
	Content []conversationContent `json:"content"`
}

type conversationItemCreate struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type responseCreate struct {
	Type string `json:"type"`
}

type inputAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// EventError is the error field an explicit protocol error event carries.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServerEvent is one inbound model event, decoded shallowly: only the fields
// the pump loop acts on.
type ServerEvent struct {
	Type  string      `json:"type"`
	Delta string      `json:"delta,omitempty"`
	Name  string      `json:"name,omitempty"`
	Error *EventError `json:"error,omitempty"`
}

func decodeServerEvent(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ServerEvent{}, fmt.Errorf("invalid model event: %w", err)
	}
	return ev, nil
}
