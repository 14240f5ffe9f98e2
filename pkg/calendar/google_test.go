package calendar

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/callscreen-ai/callscreen/pkg/store"
)

func connectedAccount() store.Account {
	return store.Account{
		ID:                   uuid.New(),
		DisplayName:          "Dana",
		Timezone:             "UTC",
		CalendarRefreshToken: "refresh-token",
		CalendarConnected:    true,
	}
}

func newGoogle(tokenURL, eventsURL string, now time.Time) *Google {
	return &Google{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     tokenURL,
		EventsURL:    eventsURL,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:          func() time.Time { return now },
	}
}

func TestGoogle_NotConnectedAccount(t *testing.T) {
	t.Parallel()

	g := newGoogle("", "", time.Now())
	got := g.EventsSummary(context.Background(), store.Account{CalendarConnected: false})
	if got != NotConnected {
		t.Fatalf("summary=%q, want %q", got, NotConnected)
	}
}

func TestGoogle_TokenRefreshFailureDegrades(t *testing.T) {
	t.Parallel()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(tokenSrv.Close)

	g := newGoogle(tokenSrv.URL, "", time.Now())
	got := g.EventsSummary(context.Background(), connectedAccount())
	if got != NotConnected {
		t.Fatalf("summary=%q, want %q", got, NotConnected)
	}
}

func TestGoogle_EventFetchFailureDegrades(t *testing.T) {
	t.Parallel()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
	}))
	t.Cleanup(tokenSrv.Close)
	eventsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(eventsSrv.Close)

	g := newGoogle(tokenSrv.URL, eventsSrv.URL, time.Now())
	got := g.EventsSummary(context.Background(), connectedAccount())
	if got != NoEvents {
		t.Fatalf("summary=%q, want %q", got, NoEvents)
	}
}

func TestGoogle_InProgressEventsFormatted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("grant_type") != "refresh_token" || r.FormValue("refresh_token") != "refresh-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
	}))
	t.Cleanup(tokenSrv.Close)

	eventsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"summary": "Standup",
					"start":   map[string]string{"dateTime": "2026-03-04T10:00:00Z"},
					"end":     map[string]string{"dateTime": "2026-03-04T11:00:00Z"},
				},
				{
					"summary": "Later meeting",
					"start":   map[string]string{"dateTime": "2026-03-04T15:00:00Z"},
					"end":     map[string]string{"dateTime": "2026-03-04T16:00:00Z"},
				},
			},
		})
	}))
	t.Cleanup(eventsSrv.Close)

	g := newGoogle(tokenSrv.URL, eventsSrv.URL, now)
	got := g.EventsSummary(context.Background(), connectedAccount())

	if !strings.Contains(got, "10:00 - 11:00: Standup") {
		t.Fatalf("summary=%q, want the in-progress event", got)
	}
	if strings.Contains(got, "Later meeting") {
		t.Fatalf("summary=%q, must not include events that are not in progress", got)
	}
	if !strings.Contains(got, "2026-03-04") {
		t.Fatalf("summary=%q, want current date", got)
	}
}

func TestGoogle_NoInProgressEvents(t *testing.T) {
	t.Parallel()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
	}))
	t.Cleanup(tokenSrv.Close)
	eventsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}})
	}))
	t.Cleanup(eventsSrv.Close)

	g := newGoogle(tokenSrv.URL, eventsSrv.URL, time.Now())
	if got := g.EventsSummary(context.Background(), connectedAccount()); got != NoEvents {
		t.Fatalf("summary=%q, want %q", got, NoEvents)
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()

	if got := Static("always busy").EventsSummary(context.Background(), store.Account{}); got != "always busy" {
		t.Fatalf("summary=%q, want %q", got, "always busy")
	}
}
