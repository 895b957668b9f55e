// Package memory is an in-process sheets.Mirror, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"expenses/internal/core"
	ports "expenses/internal/sheets"
)

var _ ports.Mirror = (*Mirror)(nil)

type Mirror struct {
	mu    sync.Mutex
	rows  map[int64]core.Expense
	order []int64
}

func New() *Mirror {
	return &Mirror{rows: map[int64]core.Expense{}}
}

func (m *Mirror) Upsert(_ context.Context, id int64, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = id
	e.Receipt = nil
	if _, ok := m.rows[id]; !ok {
		m.order = append(m.order, id)
	}
	m.rows[id] = e
	return nil
}

func (m *Mirror) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Mirror) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = map[int64]core.Expense{}
	m.order = nil
	return nil
}

func (m *Mirror) Replace(ctx context.Context, all []core.Expense) error {
	if err := m.Clear(ctx); err != nil {
		return err
	}
	for _, e := range all {
		if err := m.Upsert(ctx, e.ID, e); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the mirrored records in row order.
func (m *Mirror) Rows() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Expense, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}

// IDs returns the mirrored ids in ascending order.
func (m *Mirror) IDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
