package telephony

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// StreamReader is the readable side of the telephony media stream. Satisfied
// by *websocket.Conn.
type StreamReader interface {
	ReadMessage() (messageType int, data []byte, err error)
	SetReadDeadline(t time.Time) error
}

// AudioSink receives inbound caller audio. The relay consults Open before
// each forward so frames arriving after the model connection closed are
// dropped instead of erroring.
type AudioSink interface {
	Open() bool
	AppendAudio(payload string) error
}

// StartInfo is what the relay learns from the stream's start frame.
type StartInfo struct {
	Identity  string
	StreamSID string
	CallSID   string
}

// Relay pumps one telephony media stream.
type Relay struct {
	Logger *slog.Logger
}

// AwaitStart blocks until a start frame arrives and returns the identity and
// stream identifiers it carries. Frames of other kinds received first are
// skipped. The deadline bounds how long an inbound connection may sit silent
// before the call is abandoned; zero means no bound.
func (r Relay) AwaitStart(conn StreamReader, deadline time.Duration) (StartInfo, error) {
	if deadline > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
			return StartInfo{}, fmt.Errorf("set handshake deadline: %w", err)
		}
		defer func() { _ = conn.SetReadDeadline(time.Time{}) }()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return StartInfo{}, fmt.Errorf("read stream frame: %w", err)
		}
		ev, err := DecodeStreamEvent(data)
		if err != nil {
			return StartInfo{}, err
		}
		if ev.Event != EventStart {
			continue
		}

		identity := strings.TrimSpace(ev.Start.CustomParameters[IdentityParameter])
		if identity == "" {
			return StartInfo{}, fmt.Errorf("start frame missing %s parameter", IdentityParameter)
		}
		return StartInfo{
			Identity:  identity,
			StreamSID: ev.Start.StreamSID,
			CallSID:   ev.Start.CallSID,
		}, nil
	}
}

// Pump forwards media frames to the sink until a stop frame, a transport
// failure, or context cancellation. Transport failures end the call from this
// side and are logged, not propagated.
func (r Relay) Pump(ctx context.Context, conn StreamReader, sink AudioSink) {
	for {
		if ctx != nil && ctx.Err() != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx == nil || ctx.Err() == nil {
				r.logWarn("telephony stream closed", "error", err)
			}
			return
		}

		ev, err := DecodeStreamEvent(data)
		if err != nil {
			r.logWarn("skipping malformed stream frame", "error", err)
			continue
		}

		switch ev.Event {
		case EventMedia:
			if sink == nil || !sink.Open() {
				continue
			}
			if err := sink.AppendAudio(ev.Media.Payload); err != nil {
				r.logWarn("dropping audio frame", "error", err)
			}
		case EventStop:
			return
		}
	}
}

func (r Relay) logWarn(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Warn(msg, args...)
	}
}
