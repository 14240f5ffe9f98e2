package call

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type actionCall struct {
	name   string
	args   []string
}

type fakeActions struct {
	calls []actionCall
	err   error
}

func (f *fakeActions) HangUp(ctx context.Context, callSID string) error {
	f.calls = append(f.calls, actionCall{name: "hang_up", args: []string{callSID}})
	return f.err
}

func (f *fakeActions) Transfer(ctx context.Context, callSID, to string) error {
	f.calls = append(f.calls, actionCall{name: "transfer", args: []string{callSID, to}})
	return f.err
}

func (f *fakeActions) SendSMS(ctx context.Context, to, from, displayName, link string) error {
	f.calls = append(f.calls, actionCall{name: "sms", args: []string{to, from, displayName, link}})
	return f.err
}

func newDispatchSession(t *testing.T) (*Session, *Registry) {
	t.Helper()
	r := NewRegistry()
	s := r.Create(testAccount(), "+15553334444")
	s.SetStreamIdentifiers("MZtest", "CAtest")
	return s, r
}

func TestDispatcher_HangUp(t *testing.T) {
	t.Parallel()

	s, _ := newDispatchSession(t)
	actions := &fakeActions{}
	d := Dispatcher{Actions: actions}

	d.Dispatch(context.Background(), ToolHangUp, s)

	if len(actions.calls) != 1 {
		t.Fatalf("calls=%d, want 1", len(actions.calls))
	}
	if got := actions.calls[0]; got.name != "hang_up" || got.args[0] != "CAtest" {
		t.Fatalf("call=%+v, want hang_up with CAtest", got)
	}
}

func TestDispatcher_ScheduleCall_UsesSessionFields(t *testing.T) {
	t.Parallel()

	s, _ := newDispatchSession(t)
	actions := &fakeActions{}
	d := Dispatcher{Actions: actions}

	d.Dispatch(context.Background(), ToolScheduleCall, s)

	if len(actions.calls) != 1 {
		t.Fatalf("calls=%d, want 1", len(actions.calls))
	}
	got := actions.calls[0]
	want := []string{s.Account.ForwardingNumber, s.FromNumber, s.Account.DisplayName, s.Account.SchedulingURL}
	if got.name != "sms" {
		t.Fatalf("call=%q, want sms", got.name)
	}
	for i, arg := range want {
		if got.args[i] != arg {
			t.Fatalf("args[%d]=%q, want %q", i, got.args[i], arg)
		}
	}
}

func TestDispatcher_TransferCall(t *testing.T) {
	t.Parallel()

	s, _ := newDispatchSession(t)
	actions := &fakeActions{}
	d := Dispatcher{Actions: actions}

	d.Dispatch(context.Background(), ToolTransferCall, s)

	if len(actions.calls) != 1 {
		t.Fatalf("calls=%d, want 1", len(actions.calls))
	}
	got := actions.calls[0]
	if got.name != "transfer" || got.args[0] != "CAtest" || got.args[1] != s.Account.ForwardingNumber {
		t.Fatalf("call=%+v, want transfer CAtest -> %s", got, s.Account.ForwardingNumber)
	}
}

func TestDispatcher_UnknownToolIsNoop(t *testing.T) {
	t.Parallel()

	s, _ := newDispatchSession(t)
	actions := &fakeActions{}
	d := Dispatcher{Actions: actions, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	d.Dispatch(context.Background(), "book_flight", s)

	if len(actions.calls) != 0 {
		t.Fatalf("calls=%d, want 0", len(actions.calls))
	}
}

func TestDispatcher_ActionFailureDoesNotPropagate(t *testing.T) {
	t.Parallel()

	s, _ := newDispatchSession(t)
	actions := &fakeActions{err: errors.New("provider down")}
	d := Dispatcher{Actions: actions, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	// Must not panic or surface the error.
	d.Dispatch(context.Background(), ToolHangUp, s)

	if len(actions.calls) != 1 {
		t.Fatalf("calls=%d, want 1", len(actions.calls))
	}
}
