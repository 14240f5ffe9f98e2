package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/callscreen-ai/callscreen/pkg/call"
	"github.com/callscreen-ai/callscreen/pkg/gateway/mw"
	"github.com/callscreen-ai/callscreen/pkg/store"
	"github.com/callscreen-ai/callscreen/pkg/telephony"
)

// InboundHandler answers the provider's incoming-call webhook. It resolves
// the dialed number to an account, registers a pending call session, and
// replies with TwiML that connects the call's media stream back to us.
type InboundHandler struct {
	Store           store.AccountStore
	Registry        *call.Registry
	PublicStreamURL string
	Logger          *slog.Logger
}

func (h InboundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())
	from := strings.TrimSpace(r.PostForm.Get("From"))
	to := strings.TrimSpace(r.PostForm.Get("To"))
	callSID := strings.TrimSpace(r.PostForm.Get("CallSid"))
	if to == "" {
		http.Error(w, "missing To", http.StatusBadRequest)
		return
	}

	account, err := h.Store.ByTwilioNumber(r.Context(), to)
	if errors.Is(err, store.ErrNotFound) {
		if h.Logger != nil {
			h.Logger.Warn("call for unknown number", "request_id", reqID, "to", to, "call_sid", callSID)
		}
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("account lookup failed", "request_id", reqID, "to", to, "error", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sess := h.Registry.Create(account, from)
	xml, err := telephony.StreamTwiML(h.PublicStreamURL, sess.Identity)
	if err != nil {
		sess.Release()
		if h.Logger != nil {
			h.Logger.Error("building stream twiml failed", "request_id", reqID, "error", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.Logger != nil {
		h.Logger.Info("accepted inbound call",
			"request_id", reqID,
			"call_sid", callSID,
			"from", from,
			"account", sess.Identity,
		)
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml))
}
