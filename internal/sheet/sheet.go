package sheet

import (
	"context"
	"errors"
)

// A Row is one record of string cells; numeric and boolean fields are the
// row codecs' concern. A Grid is a rectangular (possibly ragged on read)
// block of rows.
type Row = []string

type Grid = []Row

var (
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrLockTimeout is returned when the store lock cannot be acquired
	// within the configured bound. Callers may reissue the operation;
	// nothing retries automatically.
	ErrLockTimeout = errors.New("store lock acquisition timed out")
)

// Store is the tabular backing medium: a named set of sheets addressed by
// 1-based row and column. Mutations on a sheet are single-row atomic; the
// read-check-write discipline around them belongs to the caller and the
// Locker.
type Store interface {
	// ReadRange returns a rows x cols grid starting at (startRow, startCol).
	// Cells never written read back as "".
	ReadRange(ctx context.Context, sheet string, startRow, startCol, rows, cols int) (Grid, error)
	// WriteRange overwrites a block anchored at (startRow, startCol).
	WriteRange(ctx context.Context, sheet string, startRow, startCol int, grid Grid) error
	// AppendRow adds a row after the current last row.
	AppendRow(ctx context.Context, sheet string, row Row) error
	// DeleteRow removes a row and shifts later rows up.
	DeleteRow(ctx context.Context, sheet string, rowIndex int) error
	// RowCount reports the current number of rows (0 for a missing sheet).
	RowCount(ctx context.Context, sheet string) (int, error)
}

// ReadAll reads every row of a sheet up to cols columns wide. Returns an
// empty grid for an empty or missing sheet.
func ReadAll(ctx context.Context, s Store, sheet string, cols int) (Grid, error) {
	n, err := s.RowCount(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return Grid{}, nil
	}
	return s.ReadRange(ctx, sheet, 1, 1, n, cols)
}
