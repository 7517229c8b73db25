package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRowNumbers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Append(ctx, TableTrainers, []string{"Ravi", "Strength", "111"}))
	require.NoError(t, m.Append(ctx, TableTrainers, []string{"Meera", "Yoga", "222"}))

	recs, err := m.Records(ctx, TableTrainers)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].Row)
	assert.Equal(t, 3, recs[1].Row)
	assert.Equal(t, "Meera", recs[1].Get("Name"))

	require.NoError(t, m.UpdateRow(ctx, TableTrainers, 3, []string{"Meera", "Pilates", "222"}))
	require.NoError(t, m.DeleteRow(ctx, TableTrainers, 2))

	recs, err = m.Records(ctx, TableTrainers)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Row)
	assert.Equal(t, "Pilates", recs[0].Get("Specialty"))
}

func TestMemoryHeaderAndBounds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.Error(t, m.UpdateRow(ctx, TableFAQ, 1, []string{"x"}), "header row is not writable")
	assert.Error(t, m.DeleteRow(ctx, TableFAQ, 2))
	_, err := m.Records(ctx, "Nope")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestMemoryFail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("quota exceeded")

	m.Fail(boom)
	_, err := m.Records(ctx, TableMembers)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Append(ctx, TableMembers, nil), boom)

	m.Fail(nil)
	_, err = m.Records(ctx, TableMembers)
	assert.NoError(t, err)
}

func TestToRecordsSkipsBlankRowsAndPadsShortOnes(t *testing.T) {
	recs := toRecords([][]string{
		{"Key", "Value"},
		{"Gym Name", "Iron"},
		{"", ""},
		{"Phone"},
	})
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].Row)
	assert.Equal(t, 4, recs[1].Row)
	assert.Equal(t, "", recs[1].Get("Value"))
}

func TestCredentialBytes(t *testing.T) {
	b, err := credentialBytes(` {"type":"service_account"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(b))

	_, err = credentialBytes("")
	assert.Error(t, err)

	_, err = credentialBytes("/does/not/exist.json")
	assert.Error(t, err)
}
