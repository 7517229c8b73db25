package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gym-bot/internal/models"
	"gym-bot/internal/sheets"
)

// LogWorkout appends a workout entry for userID.
func (s *Store) LogWorkout(ctx context.Context, userID int64, workoutType, duration, notes string) (models.WorkoutLog, error) {
	var out models.WorkoutLog
	err := s.write(ctx, func(snap *snapshot) error {
		now := s.Now()
		name := "Unknown"
		if m, ok := snap.member(userID); ok {
			name = m.value.FullName
		}
		w := models.WorkoutLog{
			LogID:       fmt.Sprintf("LOG_%d_%s", userID, uuid.NewString()[:8]),
			UserID:      userID,
			FullName:    name,
			Date:        models.FormatDate(now),
			Time:        now.Format(models.TimeLayout),
			WorkoutType: workoutType,
			Duration:    duration,
			Notes:       notes,
		}
		if err := s.backend.Append(ctx, sheets.TableWorkouts, workoutRow(w)); err != nil {
			return fmt.Errorf("log workout for %d: %w", userID, err)
		}
		out = w
		return nil
	})
	return out, err
}

// MemberWorkouts returns up to limit workouts, newest first.
func (s *Store) MemberWorkouts(ctx context.Context, userID int64, limit int) ([]models.WorkoutLog, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.WorkoutLog
	for i := len(snap.workouts) - 1; i >= 0 && len(out) < limit; i-- {
		if snap.workouts[i].value.UserID == userID {
			out = append(out, snap.workouts[i].value)
		}
	}
	return out, nil
}

func (snap *snapshot) openSession(userID int64) (rowed[models.AttendanceSession], bool) {
	for i := len(snap.attendance) - 1; i >= 0; i-- {
		a := snap.attendance[i]
		if a.value.UserID == userID && a.value.Open() {
			return a, true
		}
	}
	return rowed[models.AttendanceSession]{}, false
}

// OpenSession returns the member's running session, if any.
func (s *Store) OpenSession(ctx context.Context, userID int64) (models.AttendanceSession, bool, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.AttendanceSession{}, false, err
	}
	a, ok := snap.openSession(userID)
	return a.value, ok, nil
}

// CheckIn opens an attendance session. A member can hold only one open
// session; a second check-in fails with ErrAlreadyCheckedIn.
func (s *Store) CheckIn(ctx context.Context, userID int64) (models.AttendanceSession, error) {
	var out models.AttendanceSession
	err := s.write(ctx, func(snap *snapshot) error {
		if open, ok := snap.openSession(userID); ok {
			out = open.value
			return ErrAlreadyCheckedIn
		}
		now := s.Now()
		name := "Unknown"
		if m, ok := snap.member(userID); ok {
			name = m.value.FullName
		}
		date := models.FormatDate(now)
		a := models.AttendanceSession{
			SessionID:   fmt.Sprintf("SESS_%s_%d_%s", strings.ReplaceAll(date, "-", ""), userID, now.Format("150405")),
			UserID:      userID,
			FullName:    name,
			Date:        date,
			CheckInTime: now.Format(models.TimeLayout),
		}
		if err := s.backend.Append(ctx, sheets.TableAttendance, sessionRow(a)); err != nil {
			return fmt.Errorf("check in %d: %w", userID, err)
		}
		out = a
		return nil
	})
	return out, err
}

// CheckOut closes the open session and records its length. Without an
// open session nothing is written and ErrNoOpenSession is returned.
func (s *Store) CheckOut(ctx context.Context, userID int64) (models.AttendanceSession, error) {
	var out models.AttendanceSession
	err := s.write(ctx, func(snap *snapshot) error {
		open, ok := snap.openSession(userID)
		if !ok {
			return ErrNoOpenSession
		}
		now := s.Now()
		a := open.value
		a.CheckOutTime = now.Format(models.TimeLayout)
		a.DurationMinutes = s.sessionMinutes(a, now)

		if err := s.backend.UpdateRow(ctx, sheets.TableAttendance, open.row, sessionRow(a)); err != nil {
			return fmt.Errorf("check out %d: %w", userID, err)
		}
		out = a
		return nil
	})
	return out, err
}

// sessionMinutes measures from the check-in date and time, so sessions
// spanning midnight are counted correctly.
func (s *Store) sessionMinutes(a models.AttendanceSession, now time.Time) int {
	start, err := time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, a.Date+" "+a.CheckInTime, s.loc)
	if err != nil {
		return 0
	}
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d.Minutes())
}

// MemberAttendance returns up to limit sessions, newest first.
func (s *Store) MemberAttendance(ctx context.Context, userID int64, limit int) ([]models.AttendanceSession, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.AttendanceSession
	for i := len(snap.attendance) - 1; i >= 0 && len(out) < limit; i-- {
		if snap.attendance[i].value.UserID == userID {
			out = append(out, snap.attendance[i].value)
		}
	}
	return out, nil
}

// Classes returns the active class schedule.
func (s *Store) Classes(ctx context.Context) ([]models.ClassSchedule, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.ClassSchedule
	for _, c := range snap.classes {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

// Machines returns the active machines.
func (s *Store) Machines(ctx context.Context) ([]models.Machine, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Machine
	for _, m := range snap.machines {
		if m.Active && m.Name != "" {
			out = append(out, m)
		}
	}
	return out, nil
}
