package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gym-bot/internal/models"
	"gym-bot/internal/store"
)

func TestWorkbook(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	snap := store.Snapshot{
		Members: []models.Member{
			{UserID: 1, FullName: "Asha", Plan: "Monthly", Status: models.StatusActive, JoinDate: "2024-04-01", AmountPaid: 2000},
			{UserID: 2, FullName: "Ravi", Plan: "Yearly", Status: models.StatusPending, JoinDate: "2024-05-09"},
		},
		Payments: []models.PaymentRecord{
			{UserID: 1, Amount: 2000, DueAmount: 2500, DueDate: "2024-05-25"},
		},
	}

	buf, err := Workbook(snap, now)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetMembers, SheetDues, SheetRisk}, f.GetSheetList())
	assert.Equal(t, 0, f.GetActiveSheetIndex())

	rows, err := f.GetRows(SheetMembers)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "User ID", rows[0][0])
	assert.Equal(t, "Asha", rows[1][1])
	assert.Equal(t, "Pending", rows[2][7])

	dues, err := f.GetRows(SheetDues)
	require.NoError(t, err)
	require.Len(t, dues, 2)
	assert.Equal(t, "2500", dues[1][3])

	risk, err := f.GetRows(SheetRisk)
	require.NoError(t, err)
	require.Len(t, risk, 2, "only the active member is measured")
	assert.Equal(t, "39", risk[1][2])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "members_20240510_0930.xlsx", FileName(time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)))
}
