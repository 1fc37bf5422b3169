package sheet

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by tests and the projector
// benchmarks. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[string][]Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: map[string][]Row{}}
}

func (m *MemoryStore) RowCount(_ context.Context, sheet string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sheets[sheet]), nil
}

func (m *MemoryStore) ReadRange(_ context.Context, sheet string, startRow, startCol, rows, cols int) (Grid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	grid := make(Grid, 0, rows)
	data := m.sheets[sheet]
	for i := 0; i < rows; i++ {
		row := make(Row, cols)
		src := startRow - 1 + i
		if src >= 0 && src < len(data) {
			for j := 0; j < cols; j++ {
				c := startCol - 1 + j
				if c >= 0 && c < len(data[src]) {
					row[j] = data[src][c]
				}
			}
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func (m *MemoryStore) WriteRange(_ context.Context, sheet string, startRow, startCol int, grid Grid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.sheets[sheet]
	for i, row := range grid {
		target := startRow - 1 + i
		for len(data) <= target {
			data = append(data, Row{})
		}
		for j, v := range row {
			c := startCol - 1 + j
			for len(data[target]) <= c {
				data[target] = append(data[target], "")
			}
			data[target][c] = v
		}
	}
	m.sheets[sheet] = data
	return nil
}

func (m *MemoryStore) AppendRow(_ context.Context, sheet string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(Row, len(row))
	copy(cp, row)
	m.sheets[sheet] = append(m.sheets[sheet], cp)
	return nil
}

func (m *MemoryStore) DeleteRow(_ context.Context, sheet string, rowIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sheets[sheet]
	if !ok {
		return ErrSheetNotFound
	}
	if rowIndex < 1 || rowIndex > len(data) {
		return fmt.Errorf("row %d out of range (sheet %s has %d rows)", rowIndex, sheet, len(data))
	}
	m.sheets[sheet] = append(data[:rowIndex-1], data[rowIndex:]...)
	return nil
}
