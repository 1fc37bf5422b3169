package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"coachline/internal/domain"
	"coachline/internal/sheet"
)

// ErrIdentityNotFound means the caller has no employee row and therefore no
// resource id for audit stamping. Fatal to the operation that needed it.
var ErrIdentityNotFound = errors.New("no resource id mapped for caller")

const employeeCols = 6

var employeeHeader = sheet.Row{"resource_id", "name", "email", "workgroup", "job_profile", "role"}

// Directory resolves caller subjects against the Employees sheet.
type Directory struct {
	Store sheet.Store
	Sheet string
}

// ResourceID maps a subject (employee email) to its resource id.
func (d Directory) ResourceID(ctx context.Context, subject string) (int, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return 0, ErrIdentityNotFound
	}
	employees, err := d.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range employees {
		if strings.EqualFold(e.Email, subject) {
			return e.ResourceID, nil
		}
	}
	return 0, ErrIdentityNotFound
}

// List returns every employee row.
func (d Directory) List(ctx context.Context) ([]domain.Employee, error) {
	grid, err := sheet.ReadAll(ctx, d.Store, d.Sheet, employeeCols)
	if err != nil {
		return nil, err
	}
	var res []domain.Employee
	for _, row := range grid {
		if e, ok := decodeEmployee(row); ok {
			res = append(res, e)
		}
	}
	return res, nil
}

// Upsert replaces the employee row with a matching resource id, or appends
// a new one.
func (d Directory) Upsert(ctx context.Context, e domain.Employee) error {
	grid, err := sheet.ReadAll(ctx, d.Store, d.Sheet, employeeCols)
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		if err := d.Store.AppendRow(ctx, d.Sheet, employeeHeader); err != nil {
			return err
		}
	}
	for i, row := range grid {
		existing, ok := decodeEmployee(row)
		if ok && existing.ResourceID == e.ResourceID {
			return d.Store.WriteRange(ctx, d.Sheet, i+1, 1, sheet.Grid{encodeEmployee(e)})
		}
	}
	return d.Store.AppendRow(ctx, d.Sheet, encodeEmployee(e))
}

func encodeEmployee(e domain.Employee) sheet.Row {
	return sheet.Row{strconv.Itoa(e.ResourceID), e.Name, e.Email, e.Workgroup, e.JobProfile, e.Role}
}

func decodeEmployee(row sheet.Row) (domain.Employee, bool) {
	if len(row) < employeeCols {
		return domain.Employee{}, false
	}
	id, err := strconv.Atoi(row[0])
	if err != nil || id <= 0 {
		return domain.Employee{}, false
	}
	return domain.Employee{
		ResourceID: id,
		Name:       row[1],
		Email:      row[2],
		Workgroup:  row[3],
		JobProfile: row[4],
		Role:       row[5],
	}, true
}
