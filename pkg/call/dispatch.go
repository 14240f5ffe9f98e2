package call

import (
	"context"
	"log/slog"
)

// Tool names the model may invoke. Declared to the model at session start.
const (
	ToolHangUp       = "hang_up"
	ToolScheduleCall = "schedule_call"
	ToolTransferCall = "transfer_call"
)

// ActionProvider issues call-control actions against the telephony provider.
type ActionProvider interface {
	HangUp(ctx context.Context, callSID string) error
	Transfer(ctx context.Context, callSID, to string) error
	SendSMS(ctx context.Context, to, from, displayName, link string) error
}

// Dispatcher maps a completed model function call to the corresponding
// telephony action. Dispatch failures are logged and never propagate into the
// pump loop; unknown tool names are a no-op.
type Dispatcher struct {
	Actions ActionProvider
	Logger  *slog.Logger
}

func (d Dispatcher) Dispatch(ctx context.Context, name string, s *Session) {
	if d.Actions == nil || s == nil {
		return
	}

	var err error
	switch name {
	case ToolHangUp:
		err = d.Actions.HangUp(ctx, s.CallSID())
	case ToolScheduleCall:
		err = d.Actions.SendSMS(ctx, s.Account.ForwardingNumber, s.FromNumber, s.Account.DisplayName, s.Account.SchedulingURL)
	case ToolTransferCall:
		err = d.Actions.Transfer(ctx, s.CallSID(), s.Account.ForwardingNumber)
	default:
		if d.Logger != nil {
			d.Logger.Warn("ignoring unknown tool call", "tool", name, "call_sid", s.CallSID())
		}
		return
	}

	if err != nil && d.Logger != nil {
		d.Logger.Warn("tool dispatch failed", "tool", name, "call_sid", s.CallSID(), "error", err)
	}
}
