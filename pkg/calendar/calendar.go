// Package calendar produces the natural-language availability summary the
// screening prompt is parameterized with. Providers degrade to a fallback
// string instead of failing: a missing or expired credential must never take
// a call down.
package calendar

import (
	"context"

	"github.com/callscreen-ai/callscreen/pkg/store"
)

// Degraded summaries. Callers can rely on always receiving a usable string.
const (
	NotConnected = "Calendar is not connected"
	NoEvents     = "No events found for today."
)

// Provider returns today's availability for the account, as prose.
type Provider interface {
	EventsSummary(ctx context.Context, account store.Account) string
}

// Static always returns the same summary. Used in dev mode and tests.
type Static string

func (s Static) EventsSummary(ctx context.Context, account store.Account) string {
	return string(s)
}
