// Package sheets is the boundary to the spreadsheet that holds all gym data.
// Each table is a worksheet whose first row is the header.
package sheets

import (
	"context"
	"errors"
	"strings"
)

// Worksheet names.
const (
	TableMembers    = "Members"
	TablePayments   = "Payment_History"
	TableAttendance = "Attendance"
	TableWorkouts   = "Workouts"
	TableClasses    = "Classes"
	TableMachines   = "Machines"
	TableSettings   = "General_Settings"
	TableFees       = "Fees_Structure"
	TableTrainers   = "Trainers"
	TableKnowledge  = "Knowledge_Base"
	TableFAQ        = "FAQ"
)

const firstDataRow = 2

// Headers lists the columns of every table in sheet order.
var Headers = map[string][]string{
	TableMembers: {
		"User ID", "Full Name", "Phone", "Address", "Occupation", "Plan",
		"Membership Type", "Duration (Months)", "Amount Paid", "Status",
		"Join Date", "Expiry Date", "Last Renewal",
	},
	TablePayments: {
		"Transaction ID", "User ID", "Full Name", "Date", "Action", "Plan",
		"Duration (Months)", "Amount", "Expiry Date", "Payment Method",
		"Due Date", "Due Amount",
	},
	TableAttendance: {
		"Session ID", "User ID", "Full Name", "Date", "Check-In Time",
		"Check-Out Time", "Duration (mins)", "Notes",
	},
	TableWorkouts: {
		"Log ID", "User ID", "Full Name", "Date", "Time", "Workout Type",
		"Duration", "Notes",
	},
	TableClasses: {
		"Class ID", "Class Name", "Day", "Time", "Duration", "Instructor",
		"Max Capacity", "Current Enrolled", "Availability", "Active",
	},
	TableMachines:  {"Machine Name", "Muscles Trained", "Description", "Active"},
	TableSettings:  {"Key", "Value"},
	TableFees:      {"Plan Name", "Fee Amount"},
	TableTrainers:  {"Name", "Specialty", "Phone"},
	TableKnowledge: {"Category", "Detail"},
	TableFAQ:       {"Question", "Answer"},
}

// ErrUnknownTable is returned for a table missing from Headers.
var ErrUnknownTable = errors.New("unknown table")

// Record is one data row together with the sheet row it was read from.
type Record struct {
	Row    int
	Values map[string]string
}

// Get returns the trimmed value of column col, or "".
func (r Record) Get(col string) string {
	return strings.TrimSpace(r.Values[col])
}

// Backend reads and writes whole rows. Row numbers are 1-based sheet rows,
// so the first data row is 2.
type Backend interface {
	Records(ctx context.Context, table string) ([]Record, error)
	Append(ctx context.Context, table string, values []string) error
	UpdateRow(ctx context.Context, table string, row int, values []string) error
	DeleteRow(ctx context.Context, table string, row int) error
}

// toRecords maps raw rows (header first) into records keyed by header name.
// Blank rows are skipped but still counted.
func toRecords(rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	out := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		values := make(map[string]string, len(header))
		for c, name := range header {
			if c < len(row) {
				values[strings.TrimSpace(name)] = row[c]
			} else {
				values[strings.TrimSpace(name)] = ""
			}
		}
		out = append(out, Record{Row: i + firstDataRow, Values: values})
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
