package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/callscreen-ai/callscreen/pkg/call"
	"github.com/callscreen-ai/callscreen/pkg/telephony"
)

// Config carries the connection and session parameters for the model stream.
// Voice and temperature are process-wide constants, not per-call.
type Config struct {
	URL              string
	APIKey           string
	Voice            string
	Temperature      float64
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// ToolDispatcher executes a completed model function call. Satisfied by
// call.Dispatcher.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, s *call.Session)
}

type modelConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Controller owns one model connection for the lifetime of one call.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	writeMu sync.Mutex
	conn    modelConn
	open    atomic.Bool
}

func NewController(cfg Config, logger *slog.Logger) *Controller {
	return &Controller{cfg: cfg, logger: logger}
}

// Connect opens the authenticated streaming connection. Failure here is fatal
// to the call and propagates.
func (c *Controller) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial model stream: %w", err)
	}
	c.conn = conn
	c.open.Store(true)
	return nil
}

// Open reports whether audio may still be forwarded to the model.
func (c *Controller) Open() bool {
	return c != nil && c.open.Load()
}

// Close is safe to call more than once and after a transport failure.
func (c *Controller) Close() error {
	if c == nil {
		return nil
	}
	c.open.Store(false)
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return nil
}

// StartSession configures the model session and seeds the opening turn. The
// configuration event must reach the model before any content does, and the
// seeded greeting primes the model to speak first.
func (c *Controller) StartSession(displayName, calendarContext string) error {
	update := sessionUpdate{
		Type: typeSessionUpdate,
		Session: sessionConfig{
			TurnDetection:     turnDetection{Type: "server_vad"},
			Voice:             c.cfg.Voice,
			InputAudioFormat:  audioFormatULaw,
			OutputAudioFormat: audioFormatULaw,
			Temperature:       c.cfg.Temperature,
			Modalities:        []string{"text", "audio"},
			Instructions:      Instructions(displayName, calendarContext),
			Tools: []tool{
				{Type: "function", Name: call.ToolHangUp, Description: "End the call immediately"},
				{Type: "function", Name: call.ToolScheduleCall, Description: "Send a scheduling link to the caller"},
				{Type: "function", Name: call.ToolTransferCall, Description: "Transfer the call to " + displayName},
			},
		},
	}
	if err := c.writeJSON(update); err != nil {
		return fmt.Errorf("send session configuration: %w", err)
	}

	seed := conversationItemCreate{
		Type: typeConversationItemCreate,
		Item: conversationItem{
			Type: "message",
			Role: "user",
			Content: []conversationContent{
				{Type: "input_text", Text: Greeting(displayName)},
			},
		},
	}
	if err := c.writeJSON(seed); err != nil {
		return fmt.Errorf("send conversation seed: %w", err)
	}
	if err := c.writeJSON(responseCreate{Type: typeResponseCreate}); err != nil {
		return fmt.Errorf("request initial response: %w", err)
	}
	return nil
}

// AppendAudio forwards one encoded caller audio fragment to the model. A
// write failure marks the connection closed so later frames are dropped by
// the relay.
func (c *Controller) AppendAudio(payload string) error {
	if !c.Open() {
		return fmt.Errorf("model connection closed")
	}
	if err := c.writeJSON(inputAudioAppend{Type: typeInputAudioAppend, Audio: payload}); err != nil {
		c.open.Store(false)
		return err
	}
	return nil
}

// Pump consumes model events in arrival order until the stream ends. An
// explicit error event propagates as *ProtocolError; a transport failure is a
// normal call end. At most one function call is tracked per response; if the
// model requests several tools before completing, the last recorded name wins.
func (c *Controller) Pump(ctx context.Context, sess *call.Session, dispatcher ToolDispatcher) error {
	var pendingTool string

	for {
		if ctx != nil && ctx.Err() != nil {
			return nil
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.open.Store(false)
			if ctx == nil || ctx.Err() == nil {
				c.logWarn("model stream closed", "call_sid", sess.CallSID(), "error", err)
			}
			return nil
		}

		ev, err := decodeServerEvent(data)
		if err != nil {
			c.logWarn("skipping malformed model event", "call_sid", sess.CallSID(), "error", err)
			continue
		}

		if ev.Error != nil {
			c.open.Store(false)
			return &ProtocolError{Type: ev.Error.Type, Code: ev.Error.Code, Message: ev.Error.Message}
		}

		switch ev.Type {
		case EventAudioDelta:
			if ev.Delta == "" {
				continue
			}
			frame, err := telephony.MarshalMediaFrame(sess.StreamSID(), ev.Delta)
			if err != nil {
				c.logWarn("dropping model audio", "call_sid", sess.CallSID(), "error", err)
				continue
			}
			conn := sess.TelephonyConn()
			if conn == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.open.Store(false)
				c.logWarn("telephony stream closed while writing", "call_sid", sess.CallSID(), "error", err)
				return nil
			}

		case EventFunctionCallsDone:
			if ev.Name != "" {
				pendingTool = ev.Name
			}

		case EventResponseDone:
			if pendingTool == "" {
				continue
			}
			if dispatcher != nil {
				dispatcher.Dispatch(ctx, pendingTool, sess)
			}
			pendingTool = ""
		}
	}
}

func (c *Controller) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode model event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("model connection not established")
	}
	if c.cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
