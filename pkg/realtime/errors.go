package realtime

import (
	"fmt"
	"strings"
)

// ProtocolError is an explicit error event received on the model stream. It
// is fatal to the call and propagates to the orchestrator, unlike a transport
// drop while reading the stream, which ends the pump loop quietly.
type ProtocolError struct {
	Type    string
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	parts := make([]string, 0, 3)
	if e.Type != "" {
		parts = append(parts, e.Type)
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	msg := e.Message
	if msg == "" {
		msg = "model protocol error"
	}
	if len(parts) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", strings.Join(parts, "/"), msg)
}
