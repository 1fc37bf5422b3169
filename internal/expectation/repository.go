package expectation

import (
	"context"
	"fmt"
	"time"

	"coachline/internal/domain"
	"coachline/internal/sheet"
)

// Identity resolves a caller subject to the integer resource id stamped
// into audit fields.
type Identity interface {
	ResourceID(ctx context.Context, subject string) (int, error)
}

// Repository orchestrates expectation reads and writes. Every mutation runs
// its whole read-check-write sequence inside one lock acquisition so the
// overlap check always sees the snapshot the write depends on.
type Repository struct {
	Store    sheet.Store
	Lock     *sheet.Locker
	Sheet    string
	Identity Identity
	Now      func() time.Time
	Zone     *time.Location
}

func NewRepository(store sheet.Store, lock *sheet.Locker, sheetName string, identity Identity) *Repository {
	return &Repository{
		Store:    store,
		Lock:     lock,
		Sheet:    sheetName,
		Identity: identity,
		Now:      time.Now,
		Zone:     time.UTC,
	}
}

func (r *Repository) today() string {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	zone := r.Zone
	if zone == nil {
		zone = time.UTC
	}
	return now().In(zone).Format(time.DateOnly)
}

// Add validates the candidate, checks for overlap with every other active
// expectation of the same resource and type, assigns the next id and appends
// the stamped row. An empty store seeds id 1 (max over zero rows is 0).
func (r *Repository) Add(ctx context.Context, actor string, c Candidate) (int, error) {
	if err := Validate(c); err != nil {
		return 0, err
	}
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return 0, err
	}
	start, _ := ParseDate(c.StartDate)
	end, _ := ParseDate(c.EndDate)

	var newID int
	err = r.Lock.WithLock(ctx, func() error {
		rows, rowErr := r.load(ctx)
		if rowErr != nil {
			return rowErr
		}
		if conflictID, found := FindConflict(rows.records, c.ResourceID, c.Type, start, end, 0); found {
			return ConflictError{ConflictingID: conflictID}
		}
		newID = nextExpectationID(rows.records)
		today := r.today()
		e := domain.Expectation{
			ID:           newID,
			ResourceID:   c.ResourceID,
			Performance:  c.Performance,
			OneToOne:     c.OneToOne,
			SideBySide:   c.SideBySide,
			StartDate:    c.StartDate,
			EndDate:      c.EndDate,
			Type:         c.Type,
			Active:       c.Active,
			CreatedBy:    modifier,
			CreatedDate:  today,
			ModifiedBy:   modifier,
			ModifiedDate: today,
		}
		if rows.total == 0 {
			if err := r.Store.AppendRow(ctx, r.Sheet, header); err != nil {
				return err
			}
		}
		return r.Store.AppendRow(ctx, r.Sheet, encodeRow(e))
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// Update replaces the mutable fields of the row identified by id. The
// overlap check excludes the record itself so an unchanged range never
// conflicts with its own row. The active flag and created audit pair are
// preserved.
func (r *Repository) Update(ctx context.Context, actor string, id int, c Candidate) error {
	if err := Validate(c); err != nil {
		return err
	}
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return err
	}
	start, _ := ParseDate(c.StartDate)
	end, _ := ParseDate(c.EndDate)

	return r.Lock.WithLock(ctx, func() error {
		rows, rowErr := r.load(ctx)
		if rowErr != nil {
			return rowErr
		}
		idx, existing, ok := rows.find(id)
		if !ok {
			return ErrNotFound
		}
		if conflictID, found := FindConflict(rows.records, c.ResourceID, c.Type, start, end, id); found {
			return ConflictError{ConflictingID: conflictID}
		}
		updated := existing
		updated.ResourceID = c.ResourceID
		updated.Performance = c.Performance
		updated.OneToOne = c.OneToOne
		updated.SideBySide = c.SideBySide
		updated.StartDate = c.StartDate
		updated.EndDate = c.EndDate
		updated.Type = c.Type
		updated.ModifiedBy = modifier
		updated.ModifiedDate = r.today()
		return r.Store.WriteRange(ctx, r.Sheet, idx, 1, sheet.Grid{encodeRow(updated)})
	})
}

// SetActive toggles the archived flag. Activation re-checks overlap with
// the row's own range excluded by id; deactivation never can introduce a
// conflict and so never checks.
func (r *Repository) SetActive(ctx context.Context, actor string, id int, active bool) error {
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return err
	}
	return r.Lock.WithLock(ctx, func() error {
		rows, rowErr := r.load(ctx)
		if rowErr != nil {
			return rowErr
		}
		idx, existing, ok := rows.find(id)
		if !ok {
			return ErrNotFound
		}
		if active && !existing.Active {
			start, err := ParseDate(existing.StartDate)
			if err != nil {
				return fmt.Errorf("stored start_date for expectation %d: %w", id, err)
			}
			end, err := ParseDate(existing.EndDate)
			if err != nil {
				return fmt.Errorf("stored end_date for expectation %d: %w", id, err)
			}
			if conflictID, found := FindConflict(rows.records, existing.ResourceID, existing.Type, start, end, id); found {
				return ConflictError{ConflictingID: conflictID}
			}
		}
		existing.Active = active
		existing.ModifiedBy = modifier
		existing.ModifiedDate = r.today()
		return r.Store.WriteRange(ctx, r.Sheet, idx, 1, sheet.Grid{encodeRow(existing)})
	})
}

// List returns every persisted expectation in storage order. Plain reads do
// not need the mutation lock.
func (r *Repository) List(ctx context.Context) ([]domain.Expectation, error) {
	rows, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return rows.records, nil
}

// Get returns the expectation with the given id.
func (r *Repository) Get(ctx context.Context, id int) (domain.Expectation, error) {
	rows, err := r.load(ctx)
	if err != nil {
		return domain.Expectation{}, err
	}
	if _, e, ok := rows.find(id); ok {
		return e, nil
	}
	return domain.Expectation{}, ErrNotFound
}

// rowSet pairs decoded records with their 1-based sheet row indices.
type rowSet struct {
	records []domain.Expectation
	indices []int
	total   int
}

func (s rowSet) find(id int) (rowIndex int, e domain.Expectation, ok bool) {
	for i, rec := range s.records {
		if rec.ID == id {
			return s.indices[i], rec, true
		}
	}
	return 0, domain.Expectation{}, false
}

func (r *Repository) load(ctx context.Context) (rowSet, error) {
	grid, err := sheet.ReadAll(ctx, r.Store, r.Sheet, numCols)
	if err != nil {
		return rowSet{}, err
	}
	set := rowSet{total: len(grid)}
	for i, row := range grid {
		if e, ok := decodeRow(row); ok {
			set.records = append(set.records, e)
			set.indices = append(set.indices, i+1)
		}
	}
	return set, nil
}

// nextExpectationID is max(existing ids)+1; deleted or archived ids are
// never reused. The empty-store seed is 1.
func nextExpectationID(records []domain.Expectation) int {
	maxID := 0
	for _, e := range records {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}
