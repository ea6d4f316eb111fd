// Package state holds the in-memory view of the appliance: the latest sample,
// the open recording session and the list of stopped sessions.
//
// Readers always receive copies, so a value returned from Store is never
// observed half-updated.
package state

import "sync"

// Store is the single source of truth shared by the poller and the HTTP
// handlers. The session mutators are meant to be called by the recording
// controller only, which serialises them under its own lock.
type Store struct {
	mu      sync.RWMutex
	latest  Sample
	hasLast bool
	current *Session
	history []string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// LatestSample returns the most recent sample, or false before the first
// successful poll.
func (s *Store) LatestSample() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLast
}

// SetLatestSample replaces the latest sample. Empty values and samples older
// than the current one are rejected and reported as false.
func (s *Store) SetLatestSample(smp Sample) bool {
	if smp.Value == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasLast && smp.Timestamp.Before(s.latest.Timestamp) {
		return false
	}
	s.latest = smp
	s.hasLast = true
	return true
}

// CurrentSession returns a copy of the open session, if any.
func (s *Store) CurrentSession() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// History returns the stopped session IDs in stop order.
func (s *Store) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// BeginSession installs sess as the open session.
func (s *Store) BeginSession(sess Session) {
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
}

// SetCurrentStatus updates the status of the open session. It is a no-op
// when no session is open.
func (s *Store) SetCurrentStatus(st Status) {
	s.mu.Lock()
	if s.current != nil {
		s.current.Status = st
	}
	s.mu.Unlock()
}

// ArchiveCurrent marks the open session Stopped, appends its ID to the
// history and clears it, all under one lock so readers never see the session
// both open and archived. It returns the archived session.
func (s *Store) ArchiveCurrent() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, false
	}
	done := *s.current
	done.Status = Stopped
	s.history = append(s.history, done.ID)
	s.current = nil
	return done, true
}

// RestoreHistory seeds the history from a persisted index. It is intended to
// be called once at startup, before any session is recorded.
func (s *Store) RestoreHistory(ids []string) {
	s.mu.Lock()
	s.history = append(s.history[:0:0], ids...)
	s.mu.Unlock()
}
