package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-bot/internal/models"
	"gym-bot/internal/sheets"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *sheets.Memory, *fakeClock) {
	t.Helper()
	mem := sheets.NewMemory()
	clock := &fakeClock{t: time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)}
	s := New(mem, Options{TTL: 5 * time.Minute, Now: clock.Now, GymName: "Test Gym"}, nil)
	return s, mem, clock
}

func seedMember(mem *sheets.Memory, m models.Member) {
	mem.Seed(sheets.TableMembers, memberRow(m))
}

const tablesPerLoad = 6

func TestCacheHonoursTTL(t *testing.T) {
	ctx := context.Background()
	s, mem, clock := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, FullName: "Ravi", Status: models.StatusActive})

	_, err := s.GetMember(ctx, 1)
	require.NoError(t, err)
	_, err = s.ListMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, tablesPerLoad, mem.Reads())

	clock.Advance(4 * time.Minute)
	_, err = s.GetMember(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, tablesPerLoad, mem.Reads(), "still fresh")

	clock.Advance(2 * time.Minute)
	_, err = s.GetMember(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2*tablesPerLoad, mem.Reads(), "stale after ttl")
}

func TestWriteForcesRefresh(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	_, err := s.GetMember(ctx, 7)
	require.ErrorIs(t, err, ErrMemberNotFound)

	_, err = s.AddMember(ctx, Registration{UserID: 7, FullName: "Asha", Plan: models.PlanMonthly, DurationMonths: 1})
	require.NoError(t, err)

	m, err := s.GetMember(ctx, 7)
	require.NoError(t, err, "write must be visible without waiting for the ttl")
	assert.Equal(t, "Asha", m.FullName)
}

func TestAddMemberIsPendingAndUpserts(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)

	m, err := s.AddMember(ctx, Registration{
		UserID: 42, FullName: "Asha", Phone: "9999999999", Plan: models.PlanMonthly,
		DurationMonths: 3, AmountPaid: 2000, DueAmount: 2500, DueDate: "2024-05-25",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)
	assert.Equal(t, "2024-05-10", m.JoinDate)
	assert.Equal(t, "2024-08-08", m.ExpiryDate)

	p, ok, err := s.LatestPayment(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ActionJoined, p.Action)
	assert.Equal(t, 2000, p.Amount)
	assert.Equal(t, 2500, p.DueAmount)
	assert.Equal(t, "2024-05-25", p.DueDate)

	_, err = s.AddMember(ctx, Registration{UserID: 42, FullName: "Asha K", Plan: models.PlanMonthly, DurationMonths: 1})
	require.NoError(t, err)
	assert.Len(t, mem.Rows(sheets.TableMembers), 1, "one live row per user")
	assert.Len(t, mem.Rows(sheets.TablePayments), 2)

	got, err := s.GetMember(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.FullName)
}

func TestAddMemberTrial(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	m, err := s.AddMember(ctx, Registration{UserID: 5, FullName: "Tina", Plan: models.PlanTrial})
	require.NoError(t, err)
	assert.Equal(t, models.MembershipTrial, m.MembershipType)
	assert.Equal(t, "2024-05-11", m.ExpiryDate)
	assert.Zero(t, m.DurationMonths)

	p, ok, err := s.LatestPayment(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ActionTrialBooked, p.Action)
}

func TestUpdateMemberStatusRejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, FullName: "Ravi", Status: models.StatusPending})

	_, err := s.UpdateMemberStatus(ctx, 1, "Suspended")
	require.Error(t, err)
	m, err := s.GetMember(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)

	m, err = s.UpdateMemberStatus(ctx, 1, "active")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, m.Status)

	_, err = s.UpdateMemberStatus(ctx, 99, "Active")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestRowReferencesSurviveDelete(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, FullName: "A", Status: models.StatusActive})
	seedMember(mem, models.Member{UserID: 2, FullName: "B", Status: models.StatusActive})
	seedMember(mem, models.Member{UserID: 3, FullName: "C", Status: models.StatusActive})

	require.NoError(t, s.DeleteMember(ctx, 1))
	_, err := s.UpdateMemberField(ctx, 3, FieldPhone, "12345678")
	require.NoError(t, err)

	rows := mem.Rows(sheets.TableMembers)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0][0])
	assert.Equal(t, "", rows[0][2])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "12345678", rows[1][2])
}

func TestWritesRefuseStaleRowsAfterDelete(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, FullName: "A", Status: models.StatusPending})
	seedMember(mem, models.Member{UserID: 2, FullName: "B", Status: models.StatusPending})
	seedMember(mem, models.Member{UserID: 3, FullName: "C", Status: models.StatusPending})

	_, err := s.GetMember(ctx, 1)
	require.NoError(t, err)

	mem.FailReads(errors.New("read quota exceeded"))
	require.NoError(t, s.DeleteMember(ctx, 1))

	_, err = s.UpdateMemberStatus(ctx, 2, string(models.StatusActive))
	require.Error(t, err, "rows shifted by the delete must not be written blind")

	rows := mem.Rows(sheets.TableMembers)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0][0])
	assert.Equal(t, "B", rows[0][1])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "C", rows[1][1])

	mem.FailReads(nil)
	m, err := s.UpdateMemberStatus(ctx, 2, string(models.StatusActive))
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, m.Status)
	c, err := s.GetMember(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
}

func TestUpdateMemberFieldRejectsOtherFields(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, FullName: "A"})

	_, err := s.UpdateMemberField(ctx, 1, Field("status"), "Active")
	assert.Error(t, err)
}

func TestRenewMember(t *testing.T) {
	tests := []struct {
		name       string
		prevExpiry string
		months     int
		wantExpiry string
	}{
		{"extends from future expiry", "2024-06-01", 2, "2024-07-31"},
		{"extends from today when lapsed", "2024-04-01", 1, "2024-06-09"},
		{"extends from today when blank", "", 1, "2024-06-09"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, mem, _ := newTestStore(t)
			seedMember(mem, models.Member{UserID: 9, FullName: "Kiran", Status: models.StatusInactive, ExpiryDate: tt.prevExpiry})

			m, err := s.RenewMember(ctx, 9, 3000, tt.months)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExpiry, m.ExpiryDate)
			assert.Equal(t, models.StatusActive, m.Status)
			assert.Equal(t, "2024-05-10", m.LastRenewal)

			rows := mem.Rows(sheets.TablePayments)
			require.Len(t, rows, 1, "exactly one renewal record")
			assert.Equal(t, string(models.ActionRenewed), rows[0][4])
			assert.Equal(t, "3000", rows[0][7])
		})
	}
}

func TestRenewMemberValidates(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 9, FullName: "Kiran"})

	_, err := s.RenewMember(ctx, 9, 1000, 0)
	assert.Error(t, err)
	_, err = s.RenewMember(ctx, 10, 1000, 1)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.Empty(t, mem.Rows(sheets.TablePayments))
}

func TestCheckInCheckOut(t *testing.T) {
	ctx := context.Background()
	s, mem, clock := newTestStore(t)
	seedMember(mem, models.Member{UserID: 3, FullName: "Meera", Status: models.StatusActive})

	_, err := s.CheckOut(ctx, 3)
	require.ErrorIs(t, err, ErrNoOpenSession)
	assert.Empty(t, mem.Rows(sheets.TableAttendance), "checkout without session writes nothing")

	first, err := s.CheckIn(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "10:00:00", first.CheckInTime)

	again, err := s.CheckIn(ctx, 3)
	require.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.Equal(t, first.SessionID, again.SessionID)
	assert.Len(t, mem.Rows(sheets.TableAttendance), 1, "no second open session")

	clock.Advance(45 * time.Minute)
	done, err := s.CheckOut(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 45, done.DurationMinutes)
	assert.Equal(t, "10:45:00", done.CheckOutTime)

	_, open, err := s.OpenSession(ctx, 3)
	require.NoError(t, err)
	assert.False(t, open)

	before := mem.Rows(sheets.TableAttendance)
	_, err = s.CheckOut(ctx, 3)
	require.ErrorIs(t, err, ErrNoOpenSession)
	assert.Equal(t, before, mem.Rows(sheets.TableAttendance))

	history, err := s.MemberAttendance(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Meera", history[0].FullName)
}

func TestCheckOutAcrossMidnight(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t)
	clock.t = time.Date(2024, 5, 10, 23, 30, 0, 0, time.UTC)

	_, err := s.CheckIn(ctx, 3)
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)
	done, err := s.CheckOut(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 90, done.DurationMinutes)
}

func TestWorkouts(t *testing.T) {
	ctx := context.Background()
	s, mem, clock := newTestStore(t)
	seedMember(mem, models.Member{UserID: 4, FullName: "Dev"})

	_, err := s.LogWorkout(ctx, 4, "Chest", "45m", "bench")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = s.LogWorkout(ctx, 4, "Legs", "60m", "")
	require.NoError(t, err)

	logs, err := s.MemberWorkouts(ctx, 4, 5)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Legs", logs[0].WorkoutType)
	assert.Equal(t, "Dev", logs[1].FullName)
}

func TestDues(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)

	_, err := s.AddMember(ctx, Registration{UserID: 1, FullName: "Due Tomorrow", Plan: models.PlanMonthly, DurationMonths: 1, AmountPaid: 1000, DueAmount: 500, DueDate: "2024-05-11"})
	require.NoError(t, err)
	_, err = s.AddMember(ctx, Registration{UserID: 2, FullName: "Paid Up", Plan: models.PlanMonthly, DurationMonths: 1, AmountPaid: 1500})
	require.NoError(t, err)
	_, err = s.AddMember(ctx, Registration{UserID: 3, FullName: "Due Later", Plan: models.PlanMonthly, DurationMonths: 1, AmountPaid: 500, DueAmount: 1000, DueDate: "2024-05-25"})
	require.NoError(t, err)

	all, err := s.MembersWithDues(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tomorrow, err := s.MembersDueOn(ctx, "2024-05-11")
	require.NoError(t, err)
	require.Len(t, tomorrow, 1)
	assert.Equal(t, int64(1), tomorrow[0].Member.UserID)

	settled, err := s.MarkDueAsPaid(ctx, 1, "Stripe")
	require.NoError(t, err)
	assert.Equal(t, 1500, settled.Payment.Amount)
	assert.Equal(t, 1500, settled.Member.AmountPaid)

	date, amount, err := s.MemberDues(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, date)
	assert.Zero(t, amount)

	_, err = s.MarkDueAsPaid(ctx, 2, "Cash")
	assert.ErrorIs(t, err, ErrNoDues)
	assert.Len(t, mem.Rows(sheets.TablePayments), 3)
}

func TestSettlePaidAmount(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	_, err := s.AddMember(ctx, Registration{UserID: 3, FullName: "Due Later", Plan: models.PlanMonthly, DurationMonths: 1, AmountPaid: 500, DueAmount: 1000, DueDate: "2024-05-25"})
	require.NoError(t, err)

	_, err = s.SettlePaidAmount(ctx, 3, "Stripe", 400)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	_, amount, err := s.MemberDues(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1000, amount, "a mismatched payment leaves the due alone")

	settled, err := s.SettlePaidAmount(ctx, 3, "Stripe", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1500, settled.Member.AmountPaid)
}

func TestOfflineStore(t *testing.T) {
	ctx := context.Background()
	s := New(nil, Options{GymName: "Offline Gym"}, nil)

	assert.False(t, s.Online())
	_, err := s.GetMember(ctx, 1)
	assert.ErrorIs(t, err, ErrOffline)
	_, err = s.CheckIn(ctx, 1)
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, "Offline Gym", s.GymInfo(ctx).GymName)
}

func TestStaleCacheServedWhenBackendFails(t *testing.T) {
	ctx := context.Background()
	s, mem, clock := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, FullName: "Ravi"})

	_, err := s.GetMember(ctx, 1)
	require.NoError(t, err)

	mem.Fail(errors.New("quota"))
	clock.Advance(10 * time.Minute)
	m, err := s.GetMember(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", m.FullName)

	_, err = s.CheckIn(ctx, 1)
	assert.Error(t, err, "writes fail when the backend does")
}

func TestColdCacheFailure(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	mem.Fail(errors.New("auth"))

	_, err := s.ListMembers(ctx)
	assert.Error(t, err)
}

func TestGymInfo(t *testing.T) {
	ctx := context.Background()
	s, mem, clock := newTestStore(t)
	mem.Seed(sheets.TableSettings,
		[]string{"Gym Name", "Iron Temple"},
		[]string{"Phone", "+91 90000 00000"},
		[]string{"Mon-Sat Timing", "5 AM - 11 PM"},
	)
	mem.Seed(sheets.TableFees, []string{"Monthly", "1500"}, []string{"Quarterly", "₹4,000"})
	mem.Seed(sheets.TableTrainers, []string{"Ravi", "Strength", "111"})
	mem.Seed(sheets.TableKnowledge, []string{"Facility", "Sauna"}, []string{"Rule", "Re-rack weights"})
	mem.Seed(sheets.TableFAQ, []string{"Parking?", "Yes"})

	info := s.GymInfo(ctx)
	assert.Equal(t, "Iron Temple", info.GymName)
	assert.Equal(t, "5 AM - 11 PM", info.Timings.MonSat)
	assert.NotEmpty(t, info.Timings.Sunday, "default timing kept")
	assert.Equal(t, 1500, info.Fee("Monthly"))
	assert.Equal(t, 4000, info.Fee("quarterly"))
	assert.Equal(t, []string{"Sauna"}, info.Facilities)
	assert.Equal(t, []string{"Re-rack weights"}, info.Rules)
	require.Len(t, info.Trainers, 1)
	require.Len(t, info.FAQ, 1)

	mem.Fail(errors.New("down"))
	clock.Advance(time.Hour)
	assert.Equal(t, "Iron Temple", s.GymInfo(ctx).GymName, "last good copy")
}

func TestSearchMembers(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 111, FullName: "Asha Rao", Phone: "9876"})
	seedMember(mem, models.Member{UserID: 222, FullName: "Bala", Phone: "5555"})

	got, err := s.SearchMembers(ctx, "asha")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.SearchMembers(ctx, "555")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(222), got[0].UserID)

	got, err = s.SearchMembers(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListMembersFilter(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, Status: models.StatusActive})
	seedMember(mem, models.Member{UserID: 2, Status: models.StatusPending})
	seedMember(mem, models.Member{UserID: 3, Status: models.StatusInactive})

	all, err := s.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := s.ListMembers(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].UserID)
}

func TestClassesAndMachinesOnlyActive(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	mem.Seed(sheets.TableClasses,
		[]string{"C1", "Yoga", "Mon", "7 AM", "60m", "Meera", "20", "5", "Open", "TRUE"},
		[]string{"C2", "Zumba", "Tue", "6 PM", "45m", "Ravi", "20", "20", "Full", "FALSE"},
	)
	mem.Seed(sheets.TableMachines, []string{"Leg Press", "Quads", "Sled", "TRUE"}, []string{"Old Bike", "", "", "no"})

	classes, err := s.Classes(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Yoga", classes[0].ClassName)

	machines, err := s.Machines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, "Leg Press", machines[0].Name)
}
