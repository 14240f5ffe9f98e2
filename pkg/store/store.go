package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no account owns the queried number.
var ErrNotFound = errors.New("account not found")

// Account is the owner of one screened phone number.
type Account struct {
	ID                   uuid.UUID
	Email                string
	DisplayName          string
	TwilioNumber         string
	ForwardingNumber     string
	SchedulingURL        string
	Timezone             string
	CalendarRefreshToken string
	CalendarConnected    bool
}

// Identity returns the stable key used to correlate an account with its
// active call session.
func (a Account) Identity() string {
	return a.ID.String()
}

// AccountStore resolves inbound calls to accounts by the dialed number.
type AccountStore interface {
	ByTwilioNumber(ctx context.Context, number string) (Account, error)
}
