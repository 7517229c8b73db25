package nav

import (
	"sync"
	"time"

	"gym-bot/internal/store"
)

// Flow is the pending multi-step input of a conversation. The concrete
// types below are the only implementations.
type Flow interface {
	flow()
}

type Idle struct{}

// RegStep is a registration prompt, in the order they are asked.
type RegStep int

const (
	StepName RegStep = iota + 1
	StepPhone
	StepAddress
	StepOccupation
	StepPlan
	StepDuration
	StepAmount
	StepDueDate
)

// Draft accumulates registration answers.
type Draft struct {
	FullName       string
	Phone          string
	Address        string
	Occupation     string
	Plan           string
	DurationMonths int
	Total          int
	AmountPaid     int
}

type Registering struct {
	Step  RegStep
	Draft Draft
}

type AwaitingSearch struct{}

type AwaitingBroadcast struct{}

type AwaitingRenewalAmount struct {
	Target int64
}

type AwaitingRenewalDuration struct {
	Target int64
	Amount int
}

type AwaitingTargetedBroadcast struct {
	Targets []int64
}

type AwaitingEdit struct {
	Target int64
	Field  store.Field
}

func (Idle) flow()                      {}
func (Registering) flow()               {}
func (AwaitingSearch) flow()            {}
func (AwaitingBroadcast) flow()         {}
func (AwaitingRenewalAmount) flow()     {}
func (AwaitingRenewalDuration) flow()   {}
func (AwaitingTargetedBroadcast) flow() {}
func (AwaitingEdit) flow()              {}

// Bulk is the target list of the last admin report, used by the
// remind-all and message-all buttons.
type Bulk struct {
	Category string
	Targets  []int64
}

// Session is the in-memory conversation state of one user. It is only
// touched while held through Sessions.Acquire.
type Session struct {
	UserID    int64
	Menu      Intent
	Flow      Flow
	AdminMode bool
	Bulk      Bulk

	mu sync.Mutex
	// guarded by Sessions.mu
	refs     int
	lastSeen time.Time
}

// Reset drops any pending flow.
func (s *Session) Reset() {
	s.Flow = Idle{}
}

// Idle reports whether no flow is pending.
func (s *Session) Idle() bool {
	_, ok := s.Flow.(Idle)
	return ok || s.Flow == nil
}

// Sessions keeps one Session per user. Acquire serialises the handling of
// a user's updates; different users proceed concurrently.
type Sessions struct {
	mu      sync.Mutex
	byUser  map[int64]*Session
	timeout time.Duration
	now     func() time.Time
}

func NewSessions(timeout time.Duration) *Sessions {
	return &Sessions{
		byUser:  make(map[int64]*Session),
		timeout: timeout,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (s *Sessions) SetClock(now func() time.Time) { s.now = now }

// Acquire locks and returns the session of userID, creating it when
// needed. A flow left untouched for longer than the idle timeout is
// abandoned. The returned func must be called to release the session.
func (s *Sessions) Acquire(userID int64) (*Session, func()) {
	s.mu.Lock()
	sess, ok := s.byUser[userID]
	if !ok {
		sess = &Session{UserID: userID, Flow: Idle{}}
		s.byUser[userID] = sess
	}
	sess.refs++
	s.mu.Unlock()

	sess.mu.Lock()

	s.mu.Lock()
	expired := s.timeout > 0 && !sess.lastSeen.IsZero() && s.now().Sub(sess.lastSeen) > s.timeout
	s.mu.Unlock()
	if expired {
		sess.Reset()
		sess.Bulk = Bulk{}
	}
	if sess.Flow == nil {
		sess.Flow = Idle{}
	}
	return sess, func() {
		s.mu.Lock()
		sess.lastSeen = s.now()
		sess.refs--
		s.mu.Unlock()
		sess.mu.Unlock()
	}
}

// Prune forgets sessions idle for longer than the timeout and returns how
// many were removed. Sessions held or waited on are kept.
func (s *Sessions) Prune() int {
	if s.timeout <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.byUser {
		if sess.refs == 0 && now.Sub(sess.lastSeen) > s.timeout {
			delete(s.byUser, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}
