package identity

import (
	"context"
	"encoding/json"

	"coachline/internal/sheet"
)

const rolesKey = "roles"

// Roles persists the subject-to-role assignment blob as a key/value row in
// the Properties sheet. Reads fall back to an empty map when the row is
// missing or unparseable.
type Roles struct {
	Store sheet.Store
	Lock  *sheet.Locker
	Sheet string
}

// Get returns the current assignment map, keyed by subject.
func (r Roles) Get(ctx context.Context) (map[string]string, error) {
	raw, row, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if row == 0 {
		return map[string]string{}, nil
	}
	var assignments map[string]string
	if err := json.Unmarshal([]byte(raw), &assignments); err != nil {
		return map[string]string{}, nil
	}
	return assignments, nil
}

// RoleOf returns the role assigned to subject, or "" when unassigned.
func (r Roles) RoleOf(ctx context.Context, subject string) (string, error) {
	assignments, err := r.Get(ctx)
	if err != nil {
		return "", err
	}
	return assignments[subject], nil
}

// Assign sets subject's role and rewrites the blob. An empty role removes
// the assignment.
func (r Roles) Assign(ctx context.Context, subject, role string) error {
	return r.Lock.WithLock(ctx, func() error {
		raw, row, err := r.load(ctx)
		if err != nil {
			return err
		}
		assignments := map[string]string{}
		if row != 0 {
			_ = json.Unmarshal([]byte(raw), &assignments)
		}
		if role == "" {
			delete(assignments, subject)
		} else {
			assignments[subject] = role
		}
		blob, err := json.Marshal(assignments)
		if err != nil {
			return err
		}
		if row == 0 {
			return r.Store.AppendRow(ctx, r.Sheet, sheet.Row{rolesKey, string(blob)})
		}
		return r.Store.WriteRange(ctx, r.Sheet, row, 1, sheet.Grid{{rolesKey, string(blob)}})
	})
}

// load finds the roles row. Returns row 0 when absent.
func (r Roles) load(ctx context.Context) (string, int, error) {
	grid, err := sheet.ReadAll(ctx, r.Store, r.Sheet, 2)
	if err != nil {
		return "", 0, err
	}
	for i, row := range grid {
		if len(row) >= 2 && row[0] == rolesKey {
			return row[1], i + 1, nil
		}
	}
	return "", 0, nil
}
