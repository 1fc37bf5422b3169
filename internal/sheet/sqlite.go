package sheet

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const defaultDBName = "coachline.db"

type DBConfig struct {
	Workspace string
}

func dbPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".coachline", defaultDBName)
}

// EnsureWorkspace creates the workspace directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	path := filepath.Join(workspace, ".coachline")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// OpenDB opens the SQLite database backing the cell store.
func OpenDB(cfg DBConfig) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", dbPath(cfg.Workspace))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DBPath returns the database path for a workspace.
func DBPath(workspace string) string {
	return dbPath(workspace)
}

// SQLiteStore persists sheets as a single cells table keyed by
// (sheet, row, col), with a per-sheet row counter.
type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

func (s *SQLiteStore) RowCount(ctx context.Context, sheet string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT row_count FROM sheet_meta WHERE sheet=?`, sheet).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func (s *SQLiteStore) ReadRange(ctx context.Context, sheet string, startRow, startCol, rows, cols int) (Grid, error) {
	if rows <= 0 || cols <= 0 {
		return Grid{}, nil
	}
	grid := make(Grid, rows)
	for i := range grid {
		grid[i] = make(Row, cols)
	}
	q, err := s.DB.QueryContext(ctx,
		`SELECT row, col, value FROM cells WHERE sheet=? AND row>=? AND row<? AND col>=? AND col<?`,
		sheet, startRow, startRow+rows, startCol, startCol+cols)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	for q.Next() {
		var r, c int
		var v string
		if err := q.Scan(&r, &c, &v); err != nil {
			return nil, err
		}
		grid[r-startRow][c-startCol] = v
	}
	return grid, q.Err()
}

func (s *SQLiteStore) WriteRange(ctx context.Context, sheet string, startRow, startCol int, grid Grid) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i, row := range grid {
		for j, v := range row {
			if err := upsertCell(ctx, tx, sheet, startRow+i, startCol+j, v); err != nil {
				return err
			}
		}
	}
	if err := bumpRowCount(ctx, tx, sheet, startRow+len(grid)-1); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendRow(ctx context.Context, sheet string, row Row) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var n int
	err = tx.QueryRowContext(ctx, `SELECT row_count FROM sheet_meta WHERE sheet=?`, sheet).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	target := n + 1
	for j, v := range row {
		if err := upsertCell(ctx, tx, sheet, target, j+1, v); err != nil {
			return err
		}
	}
	if err := bumpRowCount(ctx, tx, sheet, target); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteRow(ctx context.Context, sheet string, rowIndex int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var n int
	err = tx.QueryRowContext(ctx, `SELECT row_count FROM sheet_meta WHERE sheet=?`, sheet).Scan(&n)
	if err == sql.ErrNoRows {
		return ErrSheetNotFound
	}
	if err != nil {
		return err
	}
	if rowIndex < 1 || rowIndex > n {
		return fmt.Errorf("row %d out of range (sheet %s has %d rows)", rowIndex, sheet, n)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE sheet=? AND row=?`, sheet, rowIndex); err != nil {
		return err
	}
	// Shift through negative row numbers so the primary key never
	// collides mid-update.
	if _, err := tx.ExecContext(ctx, `UPDATE cells SET row=-(row-1) WHERE sheet=? AND row>?`, sheet, rowIndex); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE cells SET row=-row WHERE sheet=? AND row<0`, sheet); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sheet_meta SET row_count=? WHERE sheet=?`, n-1, sheet); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertCell(ctx context.Context, tx *sql.Tx, sheet string, row, col int, value string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO cells(sheet,row,col,value) VALUES (?,?,?,?)
ON CONFLICT(sheet,row,col) DO UPDATE SET value=excluded.value`, sheet, row, col, value)
	return err
}

func bumpRowCount(ctx context.Context, tx *sql.Tx, sheet string, lastRow int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sheet_meta(sheet,row_count) VALUES (?,?)
ON CONFLICT(sheet) DO UPDATE SET row_count=MAX(row_count, excluded.row_count)`, sheet, lastRow)
	return err
}
