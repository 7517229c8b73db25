package store

import (
	"strconv"
	"strings"

	"gym-bot/internal/models"
	"gym-bot/internal/sheets"
)

func atoi(s string) int {
	n, err := models.ParseAmount(s)
	if err != nil {
		return 0
	}
	return n
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "yes", "1", "y", "active":
		return true
	}
	return false
}

func memberFromRecord(r sheets.Record) (models.Member, bool) {
	id, ok := models.ParseUserID(r.Get("User ID"))
	if !ok {
		return models.Member{}, false
	}
	status, err := models.ParseStatus(r.Get("Status"))
	if err != nil {
		status = models.StatusPending
	}
	mt := models.MembershipType(r.Get("Membership Type"))
	if mt != models.MembershipTrial {
		mt = models.MembershipRegular
	}
	return models.Member{
		UserID:         id,
		FullName:       r.Get("Full Name"),
		Phone:          r.Get("Phone"),
		Address:        r.Get("Address"),
		Occupation:     r.Get("Occupation"),
		Plan:           r.Get("Plan"),
		MembershipType: mt,
		DurationMonths: atoi(r.Get("Duration (Months)")),
		AmountPaid:     atoi(r.Get("Amount Paid")),
		Status:         status,
		JoinDate:       r.Get("Join Date"),
		ExpiryDate:     r.Get("Expiry Date"),
		LastRenewal:    r.Get("Last Renewal"),
	}, true
}

func memberRow(m models.Member) []string {
	return []string{
		strconv.FormatInt(m.UserID, 10),
		m.FullName,
		m.Phone,
		m.Address,
		m.Occupation,
		m.Plan,
		string(m.MembershipType),
		strconv.Itoa(m.DurationMonths),
		strconv.Itoa(m.AmountPaid),
		string(m.Status),
		m.JoinDate,
		m.ExpiryDate,
		m.LastRenewal,
	}
}

func paymentFromRecord(r sheets.Record) (models.PaymentRecord, bool) {
	id, ok := models.ParseUserID(r.Get("User ID"))
	if !ok {
		return models.PaymentRecord{}, false
	}
	return models.PaymentRecord{
		TransactionID:  r.Get("Transaction ID"),
		UserID:         id,
		FullName:       r.Get("Full Name"),
		Date:           r.Get("Date"),
		Action:         models.PaymentAction(r.Get("Action")),
		Plan:           r.Get("Plan"),
		DurationMonths: atoi(r.Get("Duration (Months)")),
		Amount:         atoi(r.Get("Amount")),
		ExpiryDate:     r.Get("Expiry Date"),
		PaymentMethod:  r.Get("Payment Method"),
		DueDate:        r.Get("Due Date"),
		DueAmount:      atoi(r.Get("Due Amount")),
	}, true
}

func paymentRow(p models.PaymentRecord) []string {
	return []string{
		p.TransactionID,
		strconv.FormatInt(p.UserID, 10),
		p.FullName,
		p.Date,
		string(p.Action),
		p.Plan,
		strconv.Itoa(p.DurationMonths),
		strconv.Itoa(p.Amount),
		p.ExpiryDate,
		p.PaymentMethod,
		p.DueDate,
		strconv.Itoa(p.DueAmount),
	}
}

func sessionFromRecord(r sheets.Record) (models.AttendanceSession, bool) {
	id, ok := models.ParseUserID(r.Get("User ID"))
	if !ok {
		return models.AttendanceSession{}, false
	}
	return models.AttendanceSession{
		SessionID:       r.Get("Session ID"),
		UserID:          id,
		FullName:        r.Get("Full Name"),
		Date:            r.Get("Date"),
		CheckInTime:     r.Get("Check-In Time"),
		CheckOutTime:    r.Get("Check-Out Time"),
		DurationMinutes: atoi(r.Get("Duration (mins)")),
		Notes:           r.Get("Notes"),
	}, true
}

func sessionRow(a models.AttendanceSession) []string {
	duration := ""
	if !a.Open() {
		duration = strconv.Itoa(a.DurationMinutes)
	}
	return []string{
		a.SessionID,
		strconv.FormatInt(a.UserID, 10),
		a.FullName,
		a.Date,
		a.CheckInTime,
		a.CheckOutTime,
		duration,
		a.Notes,
	}
}

func workoutFromRecord(r sheets.Record) (models.WorkoutLog, bool) {
	id, ok := models.ParseUserID(r.Get("User ID"))
	if !ok {
		return models.WorkoutLog{}, false
	}
	return models.WorkoutLog{
		LogID:       r.Get("Log ID"),
		UserID:      id,
		FullName:    r.Get("Full Name"),
		Date:        r.Get("Date"),
		Time:        r.Get("Time"),
		WorkoutType: r.Get("Workout Type"),
		Duration:    r.Get("Duration"),
		Notes:       r.Get("Notes"),
	}, true
}

func workoutRow(w models.WorkoutLog) []string {
	return []string{
		w.LogID,
		strconv.FormatInt(w.UserID, 10),
		w.FullName,
		w.Date,
		w.Time,
		w.WorkoutType,
		w.Duration,
		w.Notes,
	}
}

func classFromRecord(r sheets.Record) models.ClassSchedule {
	return models.ClassSchedule{
		ClassID:         r.Get("Class ID"),
		ClassName:       r.Get("Class Name"),
		Day:             r.Get("Day"),
		Time:            r.Get("Time"),
		Duration:        r.Get("Duration"),
		Instructor:      r.Get("Instructor"),
		MaxCapacity:     atoi(r.Get("Max Capacity")),
		CurrentEnrolled: atoi(r.Get("Current Enrolled")),
		Availability:    r.Get("Availability"),
		Active:          truthy(r.Get("Active")),
	}
}

func machineFromRecord(r sheets.Record) models.Machine {
	return models.Machine{
		Name:           r.Get("Machine Name"),
		MusclesTrained: r.Get("Muscles Trained"),
		Description:    r.Get("Description"),
		Active:         truthy(r.Get("Active")),
	}
}
