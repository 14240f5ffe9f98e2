package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/callscreen-ai/callscreen/pkg/calendar"
	"github.com/callscreen-ai/callscreen/pkg/call"
	"github.com/callscreen-ai/callscreen/pkg/gateway/config"
	"github.com/callscreen-ai/callscreen/pkg/gateway/lifecycle"
	"github.com/callscreen-ai/callscreen/pkg/realtime"
	"github.com/callscreen-ai/callscreen/pkg/telephony"
)

// ModelSession is the slice of the realtime controller the stream handler
// drives. Factored out so tests can substitute a scripted model.
type ModelSession interface {
	Connect(ctx context.Context) error
	StartSession(displayName, calendarContext string) error
	Pump(ctx context.Context, sess *call.Session, dispatcher realtime.ToolDispatcher) error
	Open() bool
	AppendAudio(payload string) error
	io.Closer
}

type ModelSessionFactory func() ModelSession

// StreamHandler handles the provider's media-stream websocket for one call:
// it waits for the start frame, binds the connection to the pending session
// registered by the inbound webhook, opens the model session, and relays
// audio both ways until either side hangs up.
type StreamHandler struct {
	Config    config.Config
	Logger    *slog.Logger
	Lifecycle *lifecycle.Lifecycle
	Registry  *call.Registry

	// Calendar yields the schedule summary injected into the model's
	// instructions. Failures degrade to a fallback string, never an error.
	Calendar calendar.Provider

	// Dispatcher executes the call-control tools the model invokes.
	Dispatcher realtime.ToolDispatcher

	// NewModelSession overrides the default controller construction in tests.
	NewModelSession ModelSessionFactory
}

func (h StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Lifecycle != nil && h.Lifecycle.IsDraining() {
		http.Error(w, "draining", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		// The media stream comes from the telephony provider, not a browser.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	relay := telephony.Relay{Logger: h.Logger}

	handshake := h.Config.StreamHandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	info, err := relay.AwaitStart(conn, handshake)
	if err != nil {
		h.logWarn("media stream ended before start frame", "error", err)
		return
	}

	sess, ok := h.Registry.Get(info.Identity)
	if !ok {
		h.logWarn("start frame names unknown session",
			"identity", info.Identity,
			"call_sid", info.CallSID,
		)
		h.closeStream(conn, "unknown session")
		return
	}
	defer sess.Release()

	sess.SetStreamIdentifiers(info.StreamSID, info.CallSID)
	sess.AttachTelephonyConn(conn)
	sess.SetCalendarContext(h.Calendar.EventsSummary(r.Context(), sess.Account))

	model := h.newModelSession()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := model.Connect(ctx); err != nil {
		h.logError("model connect failed", "call_sid", info.CallSID, "error", err)
		h.closeStream(conn, "model unavailable")
		return
	}
	sess.AttachModelConn(model)

	if err := model.StartSession(sess.Account.DisplayName, sess.CalendarContext()); err != nil {
		h.logError("model session setup failed", "call_sid", info.CallSID, "error", err)
		return
	}

	if h.Logger != nil {
		h.Logger.Info("relaying call",
			"call_sid", info.CallSID,
			"stream_sid", info.StreamSID,
			"account", sess.Identity,
		)
	}

	// Either pump ending releases the session, which closes both connection
	// handles and so unblocks the other pump's read.
	modelDone := make(chan error, 1)
	go func() {
		err := model.Pump(ctx, sess, h.Dispatcher)
		sess.Release()
		modelDone <- err
	}()

	relay.Pump(ctx, conn, model)
	sess.Release()
	cancel()

	if err := <-modelDone; err != nil {
		var perr *realtime.ProtocolError
		if errors.As(err, &perr) {
			h.logError("model session error",
				"call_sid", info.CallSID,
				"stream_sid", info.StreamSID,
				"code", perr.Code,
				"error", perr,
			)
		} else {
			h.logError("model pump failed", "call_sid", info.CallSID, "error", err)
		}
	}

	if h.Logger != nil {
		h.Logger.Info("call ended", "call_sid", info.CallSID, "stream_sid", info.StreamSID)
	}
}

func (h StreamHandler) newModelSession() ModelSession {
	if h.NewModelSession != nil {
		return h.NewModelSession()
	}
	return realtime.NewController(realtime.Config{
		URL:              h.Config.RealtimeURL,
		APIKey:           h.Config.OpenAIAPIKey,
		Voice:            h.Config.Voice,
		Temperature:      h.Config.Temperature,
		HandshakeTimeout: h.Config.ModelDialTimeout,
		WriteTimeout:     h.Config.ModelWriteTimeout,
	}, h.Logger)
}

func (h StreamHandler) closeStream(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
}

func (h StreamHandler) logWarn(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Warn(msg, args...)
	}
}

func (h StreamHandler) logError(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Error(msg, args...)
	}
}
