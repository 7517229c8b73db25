// Package store is the cached record store over the gym spreadsheet.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gym-bot/internal/models"
	"gym-bot/internal/sheets"
	"gym-bot/pkg/logger"
)

var (
	ErrOffline          = errors.New("record store is offline")
	ErrMemberNotFound   = errors.New("member not found")
	ErrAlreadyCheckedIn = errors.New("member already checked in")
	ErrNoOpenSession    = errors.New("no open attendance session")
	ErrNoDues           = errors.New("no outstanding dues")
	ErrAmountMismatch   = errors.New("paid amount does not match the dues")
)

const DefaultTTL = 5 * time.Minute

type Options struct {
	TTL      time.Duration
	Location *time.Location
	// GymName is used when the settings table cannot be read.
	GymName string
	Now     func() time.Time
}

// Store caches every table in memory and re-reads them when the cache is
// older than the TTL or right after a write. Writes are serialised.
type Store struct {
	backend sheets.Backend
	logger  *logger.Logger
	ttl     time.Duration
	loc     *time.Location
	now     func() time.Time
	gymName string

	writeMu sync.Mutex

	mu       sync.RWMutex
	snap     *snapshot
	loadedAt time.Time

	infoMu sync.Mutex
	info   *models.GymInfo
	infoAt time.Time
}

// New builds a Store. A nil backend yields an offline store whose
// operations all fail with ErrOffline.
func New(backend sheets.Backend, opts Options, log *logger.Logger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		backend: backend,
		logger:  log.Named("store"),
		ttl:     opts.TTL,
		loc:     opts.Location,
		now:     opts.Now,
		gymName: opts.GymName,
	}
}

// Online reports whether a backend is configured.
func (s *Store) Online() bool { return s.backend != nil }

// Now returns the store clock in the gym's time zone.
func (s *Store) Now() time.Time { return s.now().In(s.loc) }

func (s *Store) today() string { return models.FormatDate(s.Now()) }

type rowed[T any] struct {
	row   int
	value T
}

type snapshot struct {
	members    []rowed[models.Member]
	payments   []rowed[models.PaymentRecord]
	attendance []rowed[models.AttendanceSession]
	workouts   []rowed[models.WorkoutLog]
	classes    []models.ClassSchedule
	machines   []models.Machine
}

func (s *Store) load(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{}

	recs, err := s.backend.Records(ctx, sheets.TableMembers)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if m, ok := memberFromRecord(r); ok {
			snap.members = append(snap.members, rowed[models.Member]{r.Row, m})
		}
	}

	if recs, err = s.backend.Records(ctx, sheets.TablePayments); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if p, ok := paymentFromRecord(r); ok {
			snap.payments = append(snap.payments, rowed[models.PaymentRecord]{r.Row, p})
		}
	}

	if recs, err = s.backend.Records(ctx, sheets.TableAttendance); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if a, ok := sessionFromRecord(r); ok {
			snap.attendance = append(snap.attendance, rowed[models.AttendanceSession]{r.Row, a})
		}
	}

	if recs, err = s.backend.Records(ctx, sheets.TableWorkouts); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if w, ok := workoutFromRecord(r); ok {
			snap.workouts = append(snap.workouts, rowed[models.WorkoutLog]{r.Row, w})
		}
	}

	if recs, err = s.backend.Records(ctx, sheets.TableClasses); err != nil {
		return nil, err
	}
	for _, r := range recs {
		snap.classes = append(snap.classes, classFromRecord(r))
	}

	if recs, err = s.backend.Records(ctx, sheets.TableMachines); err != nil {
		return nil, err
	}
	for _, r := range recs {
		snap.machines = append(snap.machines, machineFromRecord(r))
	}

	return snap, nil
}

// Refresh reloads the cache when it is stale, or unconditionally when
// force is set.
func (s *Store) Refresh(ctx context.Context, force bool) error {
	if s.backend == nil {
		return ErrOffline
	}
	if !force {
		s.mu.RLock()
		fresh := s.snap != nil && s.now().Sub(s.loadedAt) < s.ttl
		s.mu.RUnlock()
		if fresh {
			return nil
		}
	}

	snap, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("refresh cache: %w", err)
	}

	s.mu.Lock()
	s.snap = snap
	s.loadedAt = s.now()
	s.mu.Unlock()
	return nil
}

// snapshot returns a fresh cache, falling back to the stale one when the
// backend is unreachable.
func (s *Store) snapshot(ctx context.Context) (*snapshot, error) {
	err := s.Refresh(ctx, false)

	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	if err != nil {
		if snap != nil && !errors.Is(err, ErrOffline) {
			s.logger.Warnw("Serving stale cache", "error", err)
			return snap, nil
		}
		return nil, err
	}
	return snap, nil
}

// afterWrite forces a reload so the next read sees the write. A failed
// reload drops the cache: its row numbers may no longer match the sheet.
func (s *Store) afterWrite(ctx context.Context) {
	if err := s.Refresh(ctx, true); err != nil {
		s.logger.Warnw("Refresh after write failed, cache dropped", "error", err)
		s.mu.Lock()
		s.snap = nil
		s.loadedAt = time.Time{}
		s.mu.Unlock()
	}
}

// write runs fn with the write lock held and refreshes afterwards. fn only
// ever sees a snapshot that loaded successfully within the TTL; a write
// never falls back to the stale cache.
func (s *Store) write(ctx context.Context, fn func(snap *snapshot) error) error {
	if s.backend == nil {
		return ErrOffline
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.Refresh(ctx, false); err != nil {
		return err
	}
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	err := fn(snap)
	// A failed fn may still have touched the sheet.
	s.afterWrite(ctx)
	return err
}

func (snap *snapshot) member(userID int64) (rowed[models.Member], bool) {
	for _, m := range snap.members {
		if m.value.UserID == userID {
			return m, true
		}
	}
	return rowed[models.Member]{}, false
}

func (snap *snapshot) latestPayment(userID int64) (rowed[models.PaymentRecord], bool) {
	for i := len(snap.payments) - 1; i >= 0; i-- {
		if snap.payments[i].value.UserID == userID {
			return snap.payments[i], true
		}
	}
	return rowed[models.PaymentRecord]{}, false
}

// Snapshot is a read-only copy of the cached tables used by reports.
type Snapshot struct {
	Members    []models.Member
	Payments   []models.PaymentRecord
	Attendance []models.AttendanceSession
	Workouts   []models.WorkoutLog
}

// Snapshot returns the current tables.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Members:    values(snap.members),
		Payments:   values(snap.payments),
		Attendance: values(snap.attendance),
		Workouts:   values(snap.workouts),
	}, nil
}

func values[T any](rows []rowed[T]) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.value
	}
	return out
}
