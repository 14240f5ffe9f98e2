package call

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/callscreen-ai/callscreen/pkg/store"
)

type closeCounter struct {
	closes atomic.Int64
}

func (c *closeCounter) WriteMessage(messageType int, data []byte) error { return nil }

func (c *closeCounter) Close() error {
	c.closes.Add(1)
	return nil
}

func testAccount() store.Account {
	return store.Account{
		ID:               uuid.New(),
		DisplayName:      "Dana",
		TwilioNumber:     "+15550001111",
		ForwardingNumber: "+15550002222",
		SchedulingURL:    "https://cal.example/dana",
	}
}

func TestRegistry_CreateGetRelease(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	acct := testAccount()

	s := r.Create(acct, "+15553334444")
	if r.Count() != 1 {
		t.Fatalf("count=%d, want 1", r.Count())
	}

	got, ok := r.Get(acct.Identity())
	if !ok || got != s {
		t.Fatalf("Get returned %v/%v, want the created session", got, ok)
	}

	s.Release()
	if r.Count() != 0 {
		t.Fatalf("count after release=%d, want 0", r.Count())
	}
	if _, ok := r.Get(acct.Identity()); ok {
		t.Fatalf("identity still present after release")
	}
}

func TestRegistry_ReleaseClosesBothHandles_OnEveryExitPath(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := r.Create(testAccount(), "+15553334444")

	telephony := &closeCounter{}
	model := &closeCounter{}
	s.AttachTelephonyConn(telephony)
	s.AttachModelConn(model)

	s.Release()
	if telephony.closes.Load() != 1 || model.closes.Load() != 1 {
		t.Fatalf("closes=%d/%d, want 1/1", telephony.closes.Load(), model.closes.Load())
	}
	if r.Count() != 0 {
		t.Fatalf("count=%d, want 0", r.Count())
	}
}

func TestSession_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s := r.Create(testAccount(), "+15553334444")
	conn := &closeCounter{}
	s.AttachTelephonyConn(conn)

	s.Release()
	s.Release()

	if conn.closes.Load() != 1 {
		t.Fatalf("closes=%d, want 1", conn.closes.Load())
	}
	if r.Count() != 0 {
		t.Fatalf("count=%d, want 0", r.Count())
	}
}

func TestRegistry_CreateReplacesAndReleasesPriorSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	acct := testAccount()

	first := r.Create(acct, "+15553334444")
	firstConn := &closeCounter{}
	first.AttachTelephonyConn(firstConn)

	second := r.Create(acct, "+15555556666")
	if r.Count() != 1 {
		t.Fatalf("count=%d, want 1", r.Count())
	}
	if firstConn.closes.Load() != 1 {
		t.Fatalf("displaced session handle closes=%d, want 1", firstConn.closes.Load())
	}

	got, ok := r.Get(acct.Identity())
	if !ok || got != second {
		t.Fatalf("Get returned the wrong session after replacement")
	}

	// A late teardown of the displaced session must not evict the successor.
	first.Release()
	if got, ok := r.Get(acct.Identity()); !ok || got != second {
		t.Fatalf("successor evicted by displaced session teardown")
	}
}

func TestRegistry_WaitAndReleaseAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Create(testAccount(), "+15553334444")
	r.Create(testAccount(), "+15555556666")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if r.Wait(ctx) {
		t.Fatalf("Wait returned true with live sessions")
	}

	if n := r.ReleaseAll(); n != 2 {
		t.Fatalf("released=%d, want 2", n)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer waitCancel()
	if !r.Wait(waitCtx) {
		t.Fatalf("Wait returned false after ReleaseAll")
	}
	if r.Count() != 0 {
		t.Fatalf("count=%d, want 0", r.Count())
	}
}
