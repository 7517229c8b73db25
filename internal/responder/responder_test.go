package responder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-bot/internal/gpt"
	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/sheets"
	"gym-bot/internal/store"
	"gym-bot/pkg/logger"
)

type fakeExtractor struct {
	entry gpt.WorkoutEntry
	err   error
	calls int
}

func (f *fakeExtractor) ExtractWorkout(context.Context, string) (gpt.WorkoutEntry, error) {
	f.calls++
	return f.entry, f.err
}

func newResponder(t *testing.T, ex WorkoutExtractor) (*Responder, *store.Store, *sheets.Memory) {
	t.Helper()
	mem := sheets.NewMemory()
	now := func() time.Time { return time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC) }
	st := store.New(mem, store.Options{Now: now, GymName: "Iron Paradise Gym"}, logger.Nop())
	return New(st, ex, logger.Nop()), st, mem
}

func TestResolveOwnsOnlyDeterministicIntents(t *testing.T) {
	r, _, _ := newResponder(t, &fakeExtractor{})
	ctx := context.Background()

	owned := []nav.Intent{
		nav.Greeting, nav.Goodbye, nav.Help, nav.GymTiming, nav.Fees, nav.ViewFacilities,
		nav.BookTrial, nav.CheckMembership, nav.ViewSchedule, nav.LogWorkout,
	}
	for _, in := range owned {
		text, ok := r.Resolve(ctx, in, "log", 1)
		assert.True(t, ok, in)
		assert.NotEmpty(t, text, in)
	}
	for _, in := range []nav.Intent{nav.Workout, nav.Diet, nav.RegisterStart, nav.Unknown} {
		_, ok := r.Resolve(ctx, in, "anything", 1)
		assert.False(t, ok, in)
	}
}

func TestGreetingUsesGymName(t *testing.T) {
	r, _, mem := newResponder(t, nil)
	mem.Seed(sheets.TableSettings, []string{"Gym Name", "Jashpur Fitness Club"})

	text, _ := r.Resolve(context.Background(), nav.Greeting, "hi", 1)
	assert.Contains(t, text, "Jashpur Fitness Club")
}

func TestFeesSortedByPrice(t *testing.T) {
	info := models.DefaultGymInfo("Gym")
	assert.Contains(t, Fees(info), "being updated")

	info.Fees = map[string]int{"yearly": 12000, "monthly": 1500, "trial_pass": 0}
	text := Fees(info)
	assert.Regexp(t, `(?s)Trial Pass\*: ₹0.*Monthly\*: ₹1500.*Yearly\*: ₹12000`, text)
}

func TestCheckMembership(t *testing.T) {
	ctx := context.Background()
	r, st, _ := newResponder(t, nil)

	text, ok := r.Resolve(ctx, nav.CheckMembership, "", 5)
	require.True(t, ok)
	assert.Contains(t, text, "not found")

	_, err := st.AddMember(ctx, store.Registration{UserID: 5, FullName: "Asha", Plan: models.PlanMonthly, DurationMonths: 1, AmountPaid: 1500})
	require.NoError(t, err)
	text, _ = r.Resolve(ctx, nav.CheckMembership, "", 5)
	assert.Contains(t, text, "Asha")
	assert.Contains(t, text, "Pending")
	assert.Contains(t, text, "2024-06-09")
}

func TestOfflineReplies(t *testing.T) {
	st := store.New(nil, store.Options{GymName: "Gym"}, logger.Nop())
	r := New(st, &fakeExtractor{}, logger.Nop())
	ctx := context.Background()

	text, _ := r.Resolve(ctx, nav.CheckMembership, "", 1)
	assert.Contains(t, text, "offline")
	text, _ = r.Resolve(ctx, nav.ViewSchedule, "", 1)
	assert.Contains(t, text, "offline")
	text, _ = r.Resolve(ctx, nav.LogWorkout, "log run 20m", 1)
	assert.Contains(t, text, "offline")

	text, _ = r.Resolve(ctx, nav.GymTiming, "", 1)
	assert.Contains(t, text, "6:00 AM - 10:00 PM")
}

func TestSchedule(t *testing.T) {
	r, _, mem := newResponder(t, nil)
	ctx := context.Background()

	text, _ := r.Resolve(ctx, nav.ViewSchedule, "", 1)
	assert.Contains(t, text, "No classes")

	mem.Seed(sheets.TableClasses,
		[]string{"C1", "Yoga", "Monday", "07:00", "60m", "Meera", "20", "5", "Open", "TRUE"},
		[]string{"C2", "Zumba", "Tuesday", "18:00", "45m", "Raj", "20", "5", "Open", "FALSE"},
	)
	require.NoError(t, r.store.Refresh(ctx, true))
	text, _ = r.Resolve(ctx, nav.ViewSchedule, "", 1)
	assert.Contains(t, text, "Yoga")
	assert.NotContains(t, text, "Zumba")
}

func TestLogWorkout(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{entry: gpt.WorkoutEntry{Type: "Running", Duration: "30m"}}
	r, st, _ := newResponder(t, ex)

	text, _ := r.Resolve(ctx, nav.LogWorkout, "log", 9)
	assert.Equal(t, LogUsage, text)
	assert.Zero(t, ex.calls)

	text, _ = r.Resolve(ctx, nav.LogWorkout, "log running 30m", 9)
	assert.Contains(t, text, "Workout Logged")
	assert.Contains(t, text, "Running")
	logs, err := st.MemberWorkouts(ctx, 9, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "30m", logs[0].Duration)

	ex.err = errors.New("bad json")
	text, _ = r.Resolve(ctx, nav.LogWorkout, "log something odd", 9)
	assert.Contains(t, text, "couldn't understand")
	logs, err = st.MemberWorkouts(ctx, 9, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "failed extraction writes nothing")
}

func TestIsBareLog(t *testing.T) {
	assert.True(t, IsBareLog("log"))
	assert.True(t, IsBareLog(" LOG "))
	assert.True(t, IsBareLog("📝"))
	assert.True(t, IsBareLog(""))
	assert.False(t, IsBareLog("log squats"))
	assert.False(t, IsBareLog("running"))
}
