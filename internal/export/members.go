// Package export renders gym data as an xlsx workbook for the admin.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"gym-bot/internal/models"
	"gym-bot/internal/store"
)

const (
	SheetMembers = "Members"
	SheetDues    = "Dues"
	SheetRisk    = "Retention"
)

type styles struct {
	header   int
	text     int
	number   int
	active   int
	pending  int
	inactive int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "#BFBFBF", Style: 1},
		{Type: "right", Color: "#BFBFBF", Style: 1},
		{Type: "top", Color: "#BFBFBF", Style: 1},
		{Type: "bottom", Color: "#BFBFBF", Style: 1},
	}
	cell := func(font *excelize.Font, fill excelize.Fill, horizontal string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Font:      font,
			Fill:      fill,
			Alignment: &excelize.Alignment{Horizontal: horizontal, Vertical: "center"},
			Border:    border,
		})
	}

	var s styles
	var err error
	if s.header, err = cell(&excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		excelize.Fill{Type: "pattern", Color: []string{"#2E75B6"}, Pattern: 1}, "center"); err != nil {
		return nil, err
	}
	if s.text, err = cell(&excelize.Font{Size: 10}, excelize.Fill{}, "left"); err != nil {
		return nil, err
	}
	if s.number, err = cell(&excelize.Font{Size: 10}, excelize.Fill{}, "center"); err != nil {
		return nil, err
	}
	if s.active, err = cell(&excelize.Font{Size: 10, Color: "#006100"},
		excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1}, "center"); err != nil {
		return nil, err
	}
	if s.pending, err = cell(&excelize.Font{Size: 10, Color: "#9C5700"},
		excelize.Fill{Type: "pattern", Color: []string{"#FFEB9C"}, Pattern: 1}, "center"); err != nil {
		return nil, err
	}
	if s.inactive, err = cell(&excelize.Font{Size: 10, Color: "#9C0006"},
		excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1}, "center"); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *styles) status(st models.Status) int {
	switch st {
	case models.StatusActive:
		return s.active
	case models.StatusPending:
		return s.pending
	}
	return s.inactive
}

// column is one sheet column: header, width and the cell of each row.
type column[T any] struct {
	title string
	width float64
	value func(T) interface{}
	style func(T) int
}

func writeSheet[T any](f *excelize.File, st *styles, sheet string, cols []column[T], rows []T) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	for i, c := range cols {
		name, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, c.title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, name, name, st.header); err != nil {
			return err
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, colName, colName, c.width); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for i, c := range cols {
			name, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, name, c.value(row)); err != nil {
				return err
			}
			style := st.text
			if c.style != nil {
				style = c.style(row)
			}
			if err := f.SetCellStyle(sheet, name, name, style); err != nil {
				return err
			}
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header of %s: %w", sheet, err)
	}
	return nil
}

// Workbook renders the members, outstanding dues and retention risk of snap.
func Workbook(snap store.Snapshot, now time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the first, active one
	if err := f.SetSheetName("Sheet1", SheetMembers); err != nil {
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("create styles: %w", err)
	}
	members := []column[models.Member]{
		{title: "User ID", width: 14, value: func(m models.Member) interface{} { return m.UserID }, style: func(models.Member) int { return st.number }},
		{title: "Full Name", width: 24, value: func(m models.Member) interface{} { return m.FullName }},
		{title: "Phone", width: 14, value: func(m models.Member) interface{} { return m.Phone }},
		{title: "Occupation", width: 16, value: func(m models.Member) interface{} { return m.Occupation }},
		{title: "Plan", width: 12, value: func(m models.Member) interface{} { return m.Plan }},
		{title: "Duration (Months)", width: 10, value: func(m models.Member) interface{} { return m.DurationMonths }, style: func(models.Member) int { return st.number }},
		{title: "Amount Paid", width: 12, value: func(m models.Member) interface{} { return m.AmountPaid }, style: func(models.Member) int { return st.number }},
		{title: "Status", width: 10, value: func(m models.Member) interface{} { return string(m.Status) }, style: func(m models.Member) int { return st.status(m.Status) }},
		{title: "Join Date", width: 12, value: func(m models.Member) interface{} { return m.JoinDate }, style: func(models.Member) int { return st.number }},
		{title: "Expiry Date", width: 12, value: func(m models.Member) interface{} { return m.ExpiryDate }, style: func(models.Member) int { return st.number }},
	}
	if err := writeSheet(f, st, SheetMembers, members, snap.Members); err != nil {
		return nil, err
	}

	dues := []column[store.Due]{
		{title: "User ID", width: 14, value: func(d store.Due) interface{} { return d.Member.UserID }, style: func(store.Due) int { return st.number }},
		{title: "Full Name", width: 24, value: func(d store.Due) interface{} { return d.Member.FullName }},
		{title: "Phone", width: 14, value: func(d store.Due) interface{} { return d.Member.Phone }},
		{title: "Due Amount", width: 12, value: func(d store.Due) interface{} { return d.Payment.DueAmount }, style: func(store.Due) int { return st.number }},
		{title: "Due Date", width: 12, value: func(d store.Due) interface{} { return d.Payment.DueDate }, style: func(store.Due) int { return st.number }},
	}
	if err := writeSheet(f, st, SheetDues, dues, store.DuesReport(snap)); err != nil {
		return nil, err
	}

	risk := []column[store.Risk]{
		{title: "User ID", width: 14, value: func(r store.Risk) interface{} { return r.Member.UserID }, style: func(store.Risk) int { return st.number }},
		{title: "Full Name", width: 24, value: func(r store.Risk) interface{} { return r.Member.FullName }},
		{title: "Inactive Days", width: 12, value: func(r store.Risk) interface{} { return r.InactiveDays }, style: func(store.Risk) int { return st.number }},
		{title: "Last Active", width: 12, value: func(r store.Risk) interface{} { return r.LastActive }, style: func(store.Risk) int { return st.number }},
		{title: "Band", width: 10, value: func(r store.Risk) interface{} { return string(r.Band) }},
	}
	if err := writeSheet(f, st, SheetRisk, risk, store.RetentionRisk(snap, now, 7)); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

// FileName is the download name of the workbook generated at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("members_%s.xlsx", now.Format("20060102_1504"))
}
