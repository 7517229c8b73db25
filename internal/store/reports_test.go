package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-bot/internal/models"
)

var reportNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestRetentionRiskScenario(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)
	seedMember(mem, models.Member{UserID: 1, FullName: "Idle", Status: models.StatusActive, JoinDate: "2024-04-30"})
	seedMember(mem, models.Member{UserID: 2, FullName: "Pending", Status: models.StatusPending, JoinDate: "2024-01-01"})

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	risk := RetentionRisk(snap, s.Now(), 7)
	require.Len(t, risk, 1)
	assert.Equal(t, int64(1), risk[0].Member.UserID)
	assert.Equal(t, 10, risk[0].InactiveDays)
	assert.Equal(t, RiskWatch, risk[0].Band)

	_, err = s.LogWorkout(ctx, 1, "Cardio", "30m", "")
	require.NoError(t, err)

	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, RetentionRisk(snap, s.Now(), 7))
}

func TestRetentionRiskCountsCheckInsAndBands(t *testing.T) {
	snap := Snapshot{
		Members: []models.Member{
			{UserID: 1, Status: models.StatusActive, JoinDate: "2024-01-01"},
			{UserID: 2, Status: models.StatusActive, JoinDate: "2024-01-01"},
			{UserID: 3, Status: models.StatusActive, JoinDate: "2024-01-01"},
			{UserID: 4, Status: models.StatusActive, JoinDate: "bad"},
		},
		Workouts:   []models.WorkoutLog{{UserID: 1, Date: "2024-04-20"}},
		Attendance: []models.AttendanceSession{{UserID: 2, Date: "2024-05-08"}, {UserID: 3, Date: "2024-04-25"}},
	}
	risk := RetentionRisk(snap, reportNow, 7)
	require.Len(t, risk, 3)

	assert.Equal(t, int64(4), risk[0].Member.UserID)
	assert.Equal(t, 99, risk[0].InactiveDays)
	assert.Equal(t, RiskCritical, risk[0].Band)

	assert.Equal(t, int64(1), risk[1].Member.UserID)
	assert.Equal(t, 20, risk[1].InactiveDays)
	assert.Equal(t, RiskAtRisk, risk[1].Band)
	assert.Equal(t, "2024-04-20", risk[1].LastActive)

	assert.Equal(t, int64(3), risk[2].Member.UserID)
	assert.Equal(t, 15, risk[2].InactiveDays)
}

func TestBand(t *testing.T) {
	assert.Equal(t, RiskWatch, Band(7))
	assert.Equal(t, RiskWatch, Band(14))
	assert.Equal(t, RiskAtRisk, Band(15))
	assert.Equal(t, RiskAtRisk, Band(29))
	assert.Equal(t, RiskCritical, Band(30))
}

func TestRevenueAndGrowth(t *testing.T) {
	snap := Snapshot{
		Members: []models.Member{
			{UserID: 1, JoinDate: "2024-05-02"},
			{UserID: 2, JoinDate: "2024-04-15"},
			{UserID: 3, JoinDate: "2024-04-20"},
		},
		Payments: []models.PaymentRecord{
			{UserID: 2, Date: "2024-04-15", Amount: 1000},
			{UserID: 3, Date: "2024-04-20", Amount: 1000},
			{UserID: 1, Date: "2024-05-02", Amount: 3000},
		},
	}

	rev := RevenueStats(snap, reportNow)
	assert.Equal(t, 5000, rev.Total)
	assert.Equal(t, 3000, rev.Monthly)
	assert.Equal(t, 1, rev.NewMembers)
	assert.Equal(t, "May 2024", rev.Month)

	g := GrowthStats(snap, reportNow)
	assert.Equal(t, 3000, g.ThisRevenue)
	assert.Equal(t, 2000, g.LastRevenue)
	assert.Equal(t, "+50.0%", FormatPct(g.RevenueGrowthPct))
	assert.Equal(t, "-50.0%", FormatPct(g.MemberGrowthPct))

	assert.Equal(t, "+100.0%", FormatPct(GrowthStats(Snapshot{}, reportNow).RevenueGrowthPct))
}

func TestExpiringAndExpired(t *testing.T) {
	snap := Snapshot{Members: []models.Member{
		{UserID: 1, ExpiryDate: "2024-05-10"},
		{UserID: 2, ExpiryDate: "2024-05-17"},
		{UserID: 3, ExpiryDate: "2024-05-18"},
		{UserID: 4, ExpiryDate: "2024-05-01"},
		{UserID: 5},
	}}

	soon := ExpiringSoon(snap, reportNow, 7)
	require.Len(t, soon, 2)
	assert.Equal(t, 0, soon[0].DaysLeft)
	assert.Equal(t, 7, soon[1].DaysLeft)

	expired := ExpiredMembers(snap, reportNow)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(4), expired[0].Member.UserID)
	assert.Equal(t, 9, expired[0].DaysExpired)
}

func TestDuesReportUsesLatestRecord(t *testing.T) {
	snap := Snapshot{
		Members: []models.Member{{UserID: 1}, {UserID: 2}},
		Payments: []models.PaymentRecord{
			{UserID: 1, DueAmount: 500},
			{UserID: 1, DueAmount: 0},
			{UserID: 2, DueAmount: 0},
			{UserID: 2, DueAmount: 700},
		},
	}
	dues := DuesReport(snap)
	require.Len(t, dues, 1)
	assert.Equal(t, int64(2), dues[0].Member.UserID)
	assert.Equal(t, 700, dues[0].Payment.DueAmount)
}

func TestTopActiveOccupationRecentDaily(t *testing.T) {
	snap := Snapshot{
		Members: []models.Member{
			{UserID: 1, FullName: "A", Occupation: "Student"},
			{UserID: 2, FullName: "B", Occupation: "Student"},
			{UserID: 3, FullName: "C"},
		},
		Workouts: []models.WorkoutLog{
			{UserID: 2, Date: "2024-05-10"}, {UserID: 2, Date: "2024-05-09"}, {UserID: 1, Date: "2024-05-01"},
		},
		Attendance: []models.AttendanceSession{{UserID: 2, Date: "2024-05-10"}, {UserID: 9, Date: "2024-05-10"}},
		Payments: []models.PaymentRecord{
			{TransactionID: "t1"}, {TransactionID: "t2"}, {TransactionID: "t3"},
		},
	}

	top := TopActive(snap, 10)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Member.FullName)
	assert.Equal(t, 3, top[0].Visits)
	assert.Len(t, TopActive(snap, 1), 1)

	occ := OccupationBreakdown(snap)
	require.Len(t, occ, 2)
	assert.Equal(t, OccupationCount{"Student", 2}, occ[0])
	assert.Equal(t, OccupationCount{"Other", 1}, occ[1])

	recent := RecentTransactions(snap, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "t3", recent[0].TransactionID)

	day := DailyAttendance(snap, "2024-05-10")
	assert.Len(t, day.Sessions, 2)
	assert.Len(t, day.Workouts, 1)
}
