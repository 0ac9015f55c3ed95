// Package session keeps short-lived, single-use prompt sessions keyed by actor id.
// A session replaces "waiting for the next message" state: the bot starts one when it
// shows a picker and takes it when the player answers.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"warzone-bot/internal/game"
	"warzone-bot/internal/model"
)

// Session errors.
var (
	ErrNoSession      = errors.New("no pending session")
	ErrSessionExpired = model.ErrSessionExpired
	ErrTokenMismatch  = errors.New("session token mismatch")
)

// Kind identifies what a session is waiting for.
type Kind string

const (
	KindAttackTarget Kind = "attack_target" // target chosen, waiting for a missile
	KindCombo        Kind = "combo"         // target chosen, collecting missiles
)

// Session is one pending prompt.
type Session struct {
	Token     string
	ActorID   int64
	Kind      Kind
	TargetID  int64
	Items     []string
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store holds at most one session per actor.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
	clock    game.Clock
}

// NewStore creates a store whose sessions live for ttl.
func NewStore(ttl time.Duration, clock game.Clock) *Store {
	if clock == nil {
		clock = game.RealClock{}
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Store{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		clock:    clock,
	}
}

// Start opens a session for actor, replacing any pending one, and returns a copy.
func (s *Store) Start(actorID int64, kind Kind, targetID int64) Session {
	sess := &Session{
		Token:     uuid.NewString(),
		ActorID:   actorID,
		Kind:      kind,
		TargetID:  targetID,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[actorID] = sess
	s.mu.Unlock()
	return *sess
}

// Get returns the pending session of actor without consuming it.
func (s *Store) Get(actorID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.live(actorID)
	if err != nil {
		return Session{}, err
	}
	cp := *sess
	cp.Items = append([]string(nil), sess.Items...)
	return cp, nil
}

// AddItem appends a picked item to a pending combo session and returns the picks so far.
func (s *Store) AddItem(actorID int64, token, item string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.live(actorID)
	if err != nil {
		return nil, err
	}
	if sess.Token != token {
		return nil, ErrTokenMismatch
	}
	for _, it := range sess.Items {
		if it == item {
			return append([]string(nil), sess.Items...), nil
		}
	}
	sess.Items = append(sess.Items, item)
	return append([]string(nil), sess.Items...), nil
}

// Take consumes the pending session of actor. The token must match the one handed out
// by Start so a stale button cannot act on a newer prompt.
func (s *Store) Take(actorID int64, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.live(actorID)
	if err != nil {
		return Session{}, err
	}
	if sess.Token != token {
		return Session{}, ErrTokenMismatch
	}
	delete(s.sessions, actorID)
	return *sess, nil
}

// Cancel drops the pending session of actor, if any.
func (s *Store) Cancel(actorID int64) {
	s.mu.Lock()
	delete(s.sessions, actorID)
	s.mu.Unlock()
}

// Purge drops every expired session and returns how many were removed.
func (s *Store) Purge() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// live must be called with mu held. Expired sessions are removed on access.
func (s *Store) live(actorID int64) (*Session, error) {
	sess, ok := s.sessions[actorID]
	if !ok {
		return nil, ErrNoSession
	}
	if sess.Expired(s.clock.Now()) {
		delete(s.sessions, actorID)
		return nil, ErrSessionExpired
	}
	return sess, nil
}
