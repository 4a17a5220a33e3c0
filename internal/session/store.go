// Package session keeps per-session extraction history in memory with TTL
// eviction, so long-lived processes do not accumulate history forever.
package session

import (
	"sync"
	"time"

	"github.com/meetinsight/service/internal/models"
)

// Turn records one extraction performed within a session.
type Turn struct {
	Text      string           `json:"text"`
	ModelUsed models.ModelType `json:"model_used"`
	Tasks     int              `json:"tasks"`
	Requests  int              `json:"requests"`
	Status    string           `json:"status"`
	At        time.Time        `json:"at"`
}

type entry struct {
	turns      []Turn
	lastAccess time.Time
}

// Store is a TTL-evicting session history map. A background task sweeps
// sessions idle longer than the TTL.
type Store struct {
	mutex    sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	maxTurns int
	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore starts a store whose sessions expire after ttl of inactivity.
// Each session keeps at most maxTurns recent turns (0 means unbounded).
func NewStore(ttl time.Duration, maxTurns int) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		maxTurns: maxTurns,
		stop:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Append atomically adds a turn to the session, creating it on first use.
func (s *Store) Append(sessionID string, turn Turn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		e = &entry{}
		s.sessions[sessionID] = e
	}
	e.turns = append(e.turns, turn)
	if s.maxTurns > 0 && len(e.turns) > s.maxTurns {
		e.turns = e.turns[len(e.turns)-s.maxTurns:]
	}
	e.lastAccess = time.Now()
}

// History returns a copy of the session's turns in append order. A missing
// or expired session yields an empty history.
func (s *Store) History(sessionID string) []Turn {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	e.lastAccess = time.Now()
	out := make([]Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

// Delete removes a session immediately.
func (s *Store) Delete(sessionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.sessions, sessionID)
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	interval := s.ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	now := time.Now()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, e := range s.sessions {
		if now.Sub(e.lastAccess) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
