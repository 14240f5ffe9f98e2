package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/callscreen-ai/callscreen/pkg/calendar"
	"github.com/callscreen-ai/callscreen/pkg/call"
	"github.com/callscreen-ai/callscreen/pkg/gateway/config"
	"github.com/callscreen-ai/callscreen/pkg/gateway/handlers"
	"github.com/callscreen-ai/callscreen/pkg/gateway/lifecycle"
	"github.com/callscreen-ai/callscreen/pkg/gateway/mw"
	"github.com/callscreen-ai/callscreen/pkg/store"
	"github.com/callscreen-ai/callscreen/pkg/telephony"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	registry  *call.Registry
	lifecycle *lifecycle.Lifecycle
	closeFn   func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	accounts, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		mux:       http.NewServeMux(),
		registry:  call.NewRegistry(),
		lifecycle: &lifecycle.Lifecycle{},
		closeFn:   closeStore,
	}

	actions := telephony.NewActions(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	dispatcher := call.Dispatcher{Actions: actions, Logger: logger}

	s.routes(accounts, dispatcher)
	return s, nil
}

func buildStore(ctx context.Context, cfg config.Config) (store.AccountStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open account store: %w", err)
		}
		return pg, pg.Close, nil
	}

	seed := store.Account{
		ID:               uuid.New(),
		Email:            cfg.AccountEmail,
		DisplayName:      cfg.AccountDisplayName,
		TwilioNumber:     cfg.AccountTwilioNumber,
		ForwardingNumber: cfg.AccountForwardingNumber,
		SchedulingURL:    cfg.AccountSchedulingURL,
		Timezone:         cfg.AccountTimezone,
	}
	return store.NewMemory(seed), func() {}, nil
}

func (s *Server) routes(accounts store.AccountStore, dispatcher call.Dispatcher) {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{
		Config:    s.cfg,
		Lifecycle: s.lifecycle,
		Registry:  s.registry,
	})

	var inbound http.Handler = handlers.InboundHandler{
		Store:           accounts,
		Registry:        s.registry,
		PublicStreamURL: s.cfg.PublicStreamURL,
		Logger:          s.logger,
	}
	if s.cfg.ValidateTwilioSignature {
		inbound = mw.TwilioSignature(s.cfg.TwilioAuthToken, s.webhookURL(), s.logger, inbound)
	}
	s.mux.Handle("/calls/inbound", inbound)

	s.mux.Handle("/calls/audio-stream", handlers.StreamHandler{
		Config:     s.cfg,
		Logger:     s.logger,
		Lifecycle:  s.lifecycle,
		Registry:   s.registry,
		Calendar:   s.calendarProvider(),
		Dispatcher: dispatcher,
	})
}

// webhookURL derives the public URL of the inbound webhook from the stream
// URL: same host, https scheme, webhook path. The provider signature is
// computed against it.
func (s *Server) webhookURL() string {
	u := s.cfg.PublicStreamURL
	if rest, ok := strings.CutPrefix(u, "wss://"); ok {
		u = "https://" + rest
	} else if rest, ok := strings.CutPrefix(u, "ws://"); ok {
		u = "http://" + rest
	}
	if base, ok := strings.CutSuffix(u, "/calls/audio-stream"); ok {
		return base + "/calls/inbound"
	}
	return u
}

func (s *Server) calendarProvider() calendar.Provider {
	if s.cfg.GoogleClientID == "" || s.cfg.GoogleClientSecret == "" {
		return calendar.Static(calendar.NotConnected)
	}
	return &calendar.Google{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		TokenURL:     s.cfg.GoogleTokenURL,
		EventsURL:    s.cfg.GoogleCalendarURL,
		Logger:       s.logger,
	}
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining flips readiness and makes the stream handler refuse new calls.
// Calls already in flight keep relaying.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// WaitSessions blocks until every active call has ended or ctx expires.
func (s *Server) WaitSessions(ctx context.Context) bool {
	return s.registry.Wait(ctx)
}

// CancelSessions force-releases every remaining call.
func (s *Server) CancelSessions() {
	if n := s.registry.ReleaseAll(); n > 0 {
		s.logger.Warn("force-released active calls at shutdown", "count", n)
	}
}

// Close releases backing resources such as the database pool.
func (s *Server) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}
