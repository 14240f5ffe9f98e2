// Package call holds the per-call session state, the process-wide session
// registry, and the dispatcher that turns model tool calls into telephony
// actions.
package call

import (
	"io"
	"sync"

	"github.com/callscreen-ai/callscreen/pkg/store"
)

// StreamConn is the writable side of the telephony media stream. Satisfied by
// *websocket.Conn.
type StreamConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one live phone call. It is created by the inbound-call webhook
// when the dialed number resolves to an account, and released on every exit
// path of the media relay.
type Session struct {
	Identity   string
	Account    store.Account
	FromNumber string

	mu              sync.Mutex
	streamSID       string
	callSID         string
	calendarContext string
	telephonyConn   StreamConn
	modelConn       io.Closer

	registry *Registry
	entry    *registryEntry
	released sync.Once
}

// SetStreamIdentifiers records the tokens the telephony provider assigned at
// stream start. Assignment happens before the pump loops launch, so reads from
// the loops never race a write.
func (s *Session) SetStreamIdentifiers(streamSID, callSID string) {
	s.mu.Lock()
	s.streamSID = streamSID
	s.callSID = callSID
	s.mu.Unlock()
}

func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

func (s *Session) CallSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callSID
}

func (s *Session) SetCalendarContext(events string) {
	s.mu.Lock()
	s.calendarContext = events
	s.mu.Unlock()
}

func (s *Session) CalendarContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendarContext
}

func (s *Session) AttachTelephonyConn(conn StreamConn) {
	s.mu.Lock()
	s.telephonyConn = conn
	s.mu.Unlock()
}

func (s *Session) TelephonyConn() StreamConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telephonyConn
}

func (s *Session) AttachModelConn(conn io.Closer) {
	s.mu.Lock()
	s.modelConn = conn
	s.mu.Unlock()
}

// Release closes both stream handles and removes the session from its
// registry. Safe to call more than once; close errors on already-closed
// handles are discarded.
func (s *Session) Release() {
	if s == nil {
		return
	}
	s.released.Do(func() {
		s.mu.Lock()
		telephony := s.telephonyConn
		model := s.modelConn
		s.mu.Unlock()

		if telephony != nil {
			_ = telephony.Close()
		}
		if model != nil {
			_ = model.Close()
		}
		if s.registry != nil {
			s.registry.remove(s.Identity, s.entry)
		}
	})
}
