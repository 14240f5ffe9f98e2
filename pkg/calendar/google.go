package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/callscreen-ai/callscreen/pkg/store"
)

// Google fetches today's events from the Google Calendar API using the
// account's stored refresh token. All failures degrade to a summary string.
type Google struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	EventsURL    string
	HTTPClient   *http.Client
	Logger       *slog.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

const (
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	defaultEventsURL = "https://www.googleapis.com/calendar/v3/calendars/primary/events"
)

func (g *Google) EventsSummary(ctx context.Context, account store.Account) string {
	if !account.CalendarConnected || strings.TrimSpace(account.CalendarRefreshToken) == "" {
		return NotConnected
	}

	token, err := g.refreshAccessToken(ctx, account.CalendarRefreshToken)
	if err != nil {
		g.logWarn("calendar token refresh failed", "account", account.Identity(), "error", err)
		return NotConnected
	}

	loc, err := time.LoadLocation(account.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	now = now.In(loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	events, err := g.listEvents(ctx, token, startOfDay, endOfDay)
	if err != nil {
		g.logWarn("calendar event fetch failed", "account", account.Identity(), "error", err)
		return NoEvents
	}

	var inProgress []string
	for _, ev := range events {
		start, err1 := time.Parse(time.RFC3339, ev.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, ev.End.DateTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if start.After(now) || end.Before(now) {
			continue
		}
		summary := ev.Summary
		if summary == "" {
			summary = "No title"
		}
		inProgress = append(inProgress, fmt.Sprintf("%s - %s: %s",
			start.In(loc).Format("15:04"), end.In(loc).Format("15:04"), summary))
	}

	if len(inProgress) == 0 {
		return NoEvents
	}
	return fmt.Sprintf("The current date and time is %s (%s). Events in progress: %s",
		now.Format("2006-01-02 15:04:05"), loc.String(), strings.Join(inProgress, "; "))
}

type calendarEvent struct {
	Summary string `json:"summary"`
	Start   struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
}

func (g *Google) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	tokenURL := g.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return body.AccessToken, nil
}

func (g *Google) listEvents(ctx context.Context, token string, timeMin, timeMax time.Time) ([]calendarEvent, error) {
	eventsURL := g.EventsURL
	if eventsURL == "" {
		eventsURL = defaultEventsURL
	}

	q := url.Values{}
	q.Set("timeMin", timeMin.Format(time.RFC3339))
	q.Set("timeMax", timeMax.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventsURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		Items []calendarEvent `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode events response: %w", err)
	}
	return body.Items, nil
}

func (g *Google) client() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return http.DefaultClient
}

func (g *Google) logWarn(msg string, args ...any) {
	if g.Logger != nil {
		g.Logger.Warn(msg, args...)
	}
}
