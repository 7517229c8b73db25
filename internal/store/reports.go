package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gym-bot/internal/models"
)

// Reports are pure functions over a Snapshot and the current time, so the
// admin handlers and tests share them without touching the backend.

type Revenue struct {
	Total      int
	Monthly    int
	Month      string
	NewMembers int
}

func RevenueStats(snap Snapshot, now time.Time) Revenue {
	month := now.Format("2006-01")
	r := Revenue{Month: now.Format("January 2006")}
	for _, p := range snap.Payments {
		r.Total += p.Amount
		if strings.HasPrefix(p.Date, month) {
			r.Monthly += p.Amount
		}
	}
	for _, m := range snap.Members {
		if strings.HasPrefix(m.JoinDate, month) {
			r.NewMembers++
		}
	}
	return r
}

type Growth struct {
	MonthName        string
	ThisRevenue      int
	LastRevenue      int
	ThisMembers      int
	LastMembers      int
	RevenueGrowthPct float64
	MemberGrowthPct  float64
}

func GrowthStats(snap Snapshot, now time.Time) Growth {
	this := now.Format("2006-01")
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := firstOfMonth.AddDate(0, 0, -1).Format("2006-01")

	g := Growth{MonthName: now.Format("January")}
	for _, p := range snap.Payments {
		switch {
		case strings.HasPrefix(p.Date, this):
			g.ThisRevenue += p.Amount
		case strings.HasPrefix(p.Date, last):
			g.LastRevenue += p.Amount
		}
	}
	for _, m := range snap.Members {
		switch {
		case strings.HasPrefix(m.JoinDate, this):
			g.ThisMembers++
		case strings.HasPrefix(m.JoinDate, last):
			g.LastMembers++
		}
	}
	g.RevenueGrowthPct = growthPct(g.ThisRevenue, g.LastRevenue)
	g.MemberGrowthPct = growthPct(g.ThisMembers, g.LastMembers)
	return g
}

// growthPct reports 100% when there is nothing to compare against.
func growthPct(cur, prev int) float64 {
	if prev <= 0 {
		return 100
	}
	return float64(cur-prev) / float64(prev) * 100
}

// FormatPct renders a signed percentage such as "+12.5%".
func FormatPct(p float64) string {
	if p >= 0 {
		return fmt.Sprintf("+%.1f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

// DuesReport lists members whose latest payment record has money due.
func DuesReport(snap Snapshot) []Due {
	latest := make(map[int64]models.PaymentRecord)
	for _, p := range snap.Payments {
		latest[p.UserID] = p
	}
	var out []Due
	for _, m := range snap.Members {
		if p, ok := latest[m.UserID]; ok && p.HasDue() {
			out = append(out, Due{Member: m, Payment: p})
		}
	}
	return out
}

type Expiring struct {
	Member   models.Member
	DaysLeft int
}

// ExpiringSoon lists members expiring within days (today included).
func ExpiringSoon(snap Snapshot, now time.Time, days int) []Expiring {
	today := calendarDay(now)
	var out []Expiring
	for _, m := range snap.Members {
		exp, ok := m.Expiry()
		if !ok {
			continue
		}
		left := daysBetween(today, exp)
		if left >= 0 && left <= days {
			out = append(out, Expiring{Member: m, DaysLeft: left})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysLeft < out[j].DaysLeft })
	return out
}

type Expired struct {
	Member      models.Member
	DaysExpired int
}

// ExpiredMembers lists members whose expiry date is before today.
func ExpiredMembers(snap Snapshot, now time.Time) []Expired {
	today := calendarDay(now)
	var out []Expired
	for _, m := range snap.Members {
		exp, ok := m.Expiry()
		if !ok || !exp.Before(today) {
			continue
		}
		out = append(out, Expired{Member: m, DaysExpired: daysBetween(exp, today)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysExpired > out[j].DaysExpired })
	return out
}

type RiskBand string

const (
	RiskWatch    RiskBand = "Watch"
	RiskAtRisk   RiskBand = "At Risk"
	RiskCritical RiskBand = "Critical"
)

// Band classifies inactivity: 7-14 days Watch, 15-29 At Risk, 30+ Critical.
func Band(inactiveDays int) RiskBand {
	switch {
	case inactiveDays >= 30:
		return RiskCritical
	case inactiveDays >= 15:
		return RiskAtRisk
	default:
		return RiskWatch
	}
}

type Risk struct {
	Member       models.Member
	InactiveDays int
	LastActive   string
	Band         RiskBand
}

// unknownInactivity is used when neither activity nor a join date parses.
const unknownInactivity = 99

// RetentionRisk lists active members idle for at least minDays, most idle
// first. Workouts and check-ins both count as activity; members with
// neither are measured from their join date.
func RetentionRisk(snap Snapshot, now time.Time, minDays int) []Risk {
	last := make(map[int64]time.Time)
	mark := func(uid int64, date string) {
		d, ok := models.ParseDate(date)
		if !ok {
			return
		}
		if cur, seen := last[uid]; !seen || d.After(cur) {
			last[uid] = d
		}
	}
	for _, w := range snap.Workouts {
		mark(w.UserID, w.Date)
	}
	for _, a := range snap.Attendance {
		mark(a.UserID, a.Date)
	}

	today := calendarDay(now)
	var out []Risk
	for _, m := range snap.Members {
		if m.Status != models.StatusActive {
			continue
		}
		r := Risk{Member: m, InactiveDays: unknownInactivity}
		if d, ok := last[m.UserID]; ok {
			r.InactiveDays = daysBetween(d, today)
			r.LastActive = models.FormatDate(d)
		} else if j, ok := m.Joined(); ok {
			r.InactiveDays = daysBetween(j, today)
		}
		if r.InactiveDays < minDays {
			continue
		}
		r.Band = Band(r.InactiveDays)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].InactiveDays > out[j].InactiveDays })
	return out
}

type ActiveMember struct {
	Member models.Member
	Visits int
}

// TopActive ranks members by workouts logged plus check-ins.
func TopActive(snap Snapshot, limit int) []ActiveMember {
	counts := make(map[int64]int)
	for _, w := range snap.Workouts {
		counts[w.UserID]++
	}
	for _, a := range snap.Attendance {
		counts[a.UserID]++
	}
	var out []ActiveMember
	for _, m := range snap.Members {
		if c := counts[m.UserID]; c > 0 {
			out = append(out, ActiveMember{Member: m, Visits: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Visits > out[j].Visits })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type OccupationCount struct {
	Occupation string
	Count      int
}

func OccupationBreakdown(snap Snapshot) []OccupationCount {
	counts := make(map[string]int)
	for _, m := range snap.Members {
		occ := m.Occupation
		if occ == "" {
			occ = "Other"
		}
		counts[occ]++
	}
	out := make([]OccupationCount, 0, len(counts))
	for occ, c := range counts {
		out = append(out, OccupationCount{Occupation: occ, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Occupation < out[j].Occupation
	})
	return out
}

// RecentTransactions returns the last n payment records, newest first.
func RecentTransactions(snap Snapshot, n int) []models.PaymentRecord {
	var out []models.PaymentRecord
	for i := len(snap.Payments) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, snap.Payments[i])
	}
	return out
}

type DailyActivity struct {
	Date     string
	Sessions []models.AttendanceSession
	Workouts []models.WorkoutLog
}

func DailyAttendance(snap Snapshot, date string) DailyActivity {
	d := DailyActivity{Date: date}
	for _, a := range snap.Attendance {
		if a.Date == date {
			d.Sessions = append(d.Sessions, a)
		}
	}
	for _, w := range snap.Workouts {
		if w.Date == date {
			d.Workouts = append(d.Workouts, w)
		}
	}
	return d
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
