// Package processor turns the raw fields of one block into a record by
// running a registered, ordered set of post-processors.
package processor

import (
	"github.com/use-agent/blockcrawl/models"
)

// Processor maps the raw fields of one block to a single keyed value.
// Run must not modify fields.
type Processor interface {
	ID() string
	Run(fields models.RawFields) (key string, value any, err error)
}

// Manager holds processors in registration order, keyed by unique id.
// It is not safe for concurrent registration.
type Manager struct {
	order []Processor
	byID  map[string]struct{}
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{byID: make(map[string]struct{})}
}

// Add registers p. Ids must be unique.
func (m *Manager) Add(p Processor) error {
	id := p.ID()
	if _, ok := m.byID[id]; ok {
		return models.Errorf(models.ErrCodeDuplicateProcessor, "Processor with name '%s' already exists.", id)
	}
	m.byID[id] = struct{}{}
	m.order = append(m.order, p)
	return nil
}

// IDs lists processor ids in registration order.
func (m *Manager) IDs() []string {
	ids := make([]string, len(m.order))
	for i, p := range m.order {
		ids[i] = p.ID()
	}
	return ids
}

// Len reports the number of registered processors.
func (m *Manager) Len() int { return len(m.order) }

// RunAll runs every processor on fields in registration order and merges
// the results. A processor error is returned as-is; two processors writing
// the same key fail the whole run.
func (m *Manager) RunAll(fields models.RawFields) (models.Record, error) {
	if len(m.order) == 0 {
		return nil, models.Errorf(models.ErrCodeEmptyManager, "No processors registered. Add at least one before running.")
	}
	rec := make(models.Record, len(m.order))
	for _, p := range m.order {
		key, value, err := p.Run(fields)
		if err != nil {
			return nil, err
		}
		if _, dup := rec[key]; dup {
			return nil, models.Errorf(models.ErrCodeDuplicateKey, "Duplicate key returned by processor: '%s'", key)
		}
		rec[key] = value
	}
	return rec, nil
}

// RunEach applies RunAll to every block and stops at the first error.
func (m *Manager) RunEach(blocks []models.RawFields) ([]models.Record, error) {
	out := make([]models.Record, 0, len(blocks))
	for _, fields := range blocks {
		rec, err := m.RunAll(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
