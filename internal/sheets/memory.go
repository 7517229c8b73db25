package sheets

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Backend. It backs tests and local runs without
// spreadsheet credentials.
type Memory struct {
	mu     sync.Mutex
	tables map[string][][]string
	err     error
	readErr error
	reads   int
}

// NewMemory returns a Memory with every known table created, header only.
func NewMemory() *Memory {
	m := &Memory{tables: make(map[string][][]string)}
	for name, header := range Headers {
		m.tables[name] = [][]string{append([]string(nil), header...)}
	}
	return m
}

// Fail makes every following call return err. Pass nil to recover.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailReads makes only Records fail with err, leaving writes working.
// Pass nil to recover.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Reads counts Records calls, for cache assertions.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Seed appends rows to table directly.
func (m *Memory) Seed(table string, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[table] = append(m.tables[table], append([]string(nil), r...))
	}
}

// Rows returns a copy of the data rows of table, header excluded.
func (m *Memory) Rows(table string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tables[table]
	if len(t) <= 1 {
		return nil
	}
	out := make([][]string, 0, len(t)-1)
	for _, r := range t[1:] {
		out = append(out, append([]string(nil), r...))
	}
	return out
}

func (m *Memory) Records(_ context.Context, table string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.readErr != nil {
		return nil, m.readErr
	}
	t, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	m.reads++
	return toRecords(t), nil
}

func (m *Memory) Append(_ context.Context, table string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.tables[table]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	m.tables[table] = append(m.tables[table], append([]string(nil), values...))
	return nil
}

func (m *Memory) UpdateRow(_ context.Context, table string, row int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	idx, err := m.index(table, row)
	if err != nil {
		return err
	}
	m.tables[table][idx] = append([]string(nil), values...)
	return nil
}

func (m *Memory) DeleteRow(_ context.Context, table string, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	idx, err := m.index(table, row)
	if err != nil {
		return err
	}
	t := m.tables[table]
	m.tables[table] = append(t[:idx], t[idx+1:]...)
	return nil
}

func (m *Memory) index(table string, row int) (int, error) {
	t, ok := m.tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	idx := row - 1
	if row < firstDataRow || idx >= len(t) {
		return 0, fmt.Errorf("row %d out of range in %s", row, table)
	}
	return idx, nil
}
