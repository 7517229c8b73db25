// internal/models/member.go
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage format for every date column.
const DateLayout = "2006-01-02"

// TimeLayout is the storage format for check-in/out times.
const TimeLayout = "15:04:05"

type Status string

const (
	StatusPending  Status = "Pending"
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// ParseStatus accepts any casing of the three member statuses.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "active":
		return StatusActive, nil
	case "inactive":
		return StatusInactive, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

type MembershipType string

const (
	MembershipRegular MembershipType = "Regular"
	MembershipTrial   MembershipType = "Trial"
)

// Plans offered at registration.
const (
	PlanMonthly   = "Monthly"
	PlanQuarterly = "Quarterly"
	PlanYearly    = "Yearly"
	PlanLifetime  = "Lifetime"
	PlanTrial     = "Trial Pass"
)

// PlanMonths returns the fixed duration of a plan, or 0 when the member
// chooses it (Monthly).
func PlanMonths(plan string) int {
	switch plan {
	case PlanQuarterly:
		return 3
	case PlanYearly:
		return 12
	case PlanLifetime:
		return 999
	}
	return 0
}

type Member struct {
	UserID         int64
	FullName       string
	Phone          string
	Address        string
	Occupation     string
	Plan           string
	MembershipType MembershipType
	DurationMonths int
	AmountPaid     int
	Status         Status
	JoinDate       string
	ExpiryDate     string
	LastRenewal    string
}

// Expiry parses ExpiryDate. ok is false for empty or malformed values.
func (m Member) Expiry() (time.Time, bool) {
	return ParseDate(m.ExpiryDate)
}

// Joined parses JoinDate.
func (m Member) Joined() (time.Time, bool) {
	return ParseDate(m.JoinDate)
}

func (m Member) IsActive() bool { return m.Status == StatusActive }

// ParseDate parses a stored date, tolerating a trailing time component.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t in the storage layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseAmount reads a whole-unit amount, ignoring currency symbols,
// separators and any fractional part. Blank input is zero.
func ParseAmount(s string) (int, error) {
	var b strings.Builder
	for _, r := range s {
		if r == '.' {
			break
		}
		if r >= '0' && r <= '9' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		if strings.TrimSpace(s) == "" {
			return 0, nil
		}
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return strconv.Atoi(b.String())
}

// ParseUserID reads a chat user id from a cell.
func ParseUserID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil
}
