package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/callscreen-ai/callscreen/pkg/call"
	"github.com/callscreen-ai/callscreen/pkg/gateway/config"
	"github.com/callscreen-ai/callscreen/pkg/gateway/lifecycle"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config    config.Config
	Lifecycle *lifecycle.Lifecycle
	Registry  *call.Registry
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK          bool     `json:"ok"`
		Draining    bool     `json:"draining"`
		ActiveCalls int      `json:"active_calls"`
		Issues      []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if h.Config.PublicStreamURL == "" {
		issues = append(issues, "public stream url not configured")
	}
	if h.Config.TwilioAccountSID == "" || h.Config.TwilioAuthToken == "" {
		issues = append(issues, "telephony credentials not configured")
	}
	if h.Config.OpenAIAPIKey == "" {
		issues = append(issues, "model api key not configured")
	}
	if h.Config.StreamHandshakeTimeout <= 0 {
		issues = append(issues, "stream handshake timeout must be > 0")
	}

	draining := h.Lifecycle.IsDraining()
	active := 0
	if h.Registry != nil {
		active = h.Registry.Count()
	}

	ok := len(issues) == 0 && !draining
	status := http.StatusOK
	if draining {
		status = http.StatusServiceUnavailable
	} else if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:          ok,
		Draining:    draining,
		ActiveCalls: active,
		Issues:      issues,
	})
}
