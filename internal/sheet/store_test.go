package sheet

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"coachline/internal/migrate"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := OpenDB(DBConfig{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": NewSQLiteStore(openTestDB(t)),
		"memory": NewMemoryStore(),
	}
}

func TestStoreAppendAndReadBack(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.AppendRow(ctx, "Sheet1", Row{"a", "b", "c"}); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := s.AppendRow(ctx, "Sheet1", Row{"d", "e"}); err != nil {
				t.Fatalf("append: %v", err)
			}
			n, err := s.RowCount(ctx, "Sheet1")
			if err != nil || n != 2 {
				t.Fatalf("row count = %d, %v", n, err)
			}
			grid, err := s.ReadRange(ctx, "Sheet1", 1, 1, 2, 3)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if grid[0][0] != "a" || grid[0][2] != "c" {
				t.Fatalf("row 1 mismatch: %v", grid[0])
			}
			// Ragged rows pad with empty cells.
			if grid[1][1] != "e" || grid[1][2] != "" {
				t.Fatalf("row 2 mismatch: %v", grid[1])
			}
		})
	}
}

func TestStoreWriteRangeOverwritesInPlace(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = s.AppendRow(ctx, "Sheet1", Row{"1", "old", "x"})
			_ = s.AppendRow(ctx, "Sheet1", Row{"2", "keep", "y"})
			if err := s.WriteRange(ctx, "Sheet1", 1, 2, Grid{{"new"}}); err != nil {
				t.Fatalf("write: %v", err)
			}
			grid, err := s.ReadRange(ctx, "Sheet1", 1, 1, 2, 3)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if grid[0][1] != "new" || grid[0][0] != "1" || grid[0][2] != "x" {
				t.Fatalf("partial overwrite wrong: %v", grid[0])
			}
			if grid[1][1] != "keep" {
				t.Fatalf("neighbor row touched: %v", grid[1])
			}
		})
	}
}

func TestStoreDeleteRowShiftsUp(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, v := range []string{"first", "second", "third"} {
				_ = s.AppendRow(ctx, "Sheet1", Row{v})
			}
			if err := s.DeleteRow(ctx, "Sheet1", 2); err != nil {
				t.Fatalf("delete: %v", err)
			}
			n, _ := s.RowCount(ctx, "Sheet1")
			if n != 2 {
				t.Fatalf("row count after delete = %d", n)
			}
			grid, err := s.ReadRange(ctx, "Sheet1", 1, 1, 2, 1)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if grid[0][0] != "first" || grid[1][0] != "third" {
				t.Fatalf("rows not shifted: %v", grid)
			}
		})
	}
}

func TestStoreDeleteRowOutOfRange(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = s.AppendRow(ctx, "Sheet1", Row{"only"})
			if err := s.DeleteRow(ctx, "Sheet1", 5); err == nil {
				t.Fatal("expected out of range error")
			}
		})
	}
}

func TestStoreMissingSheetReadsEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			n, err := s.RowCount(ctx, "Nope")
			if err != nil || n != 0 {
				t.Fatalf("missing sheet count = %d, %v", n, err)
			}
			grid, err := ReadAll(ctx, s, "Nope", 3)
			if err != nil || len(grid) != 0 {
				t.Fatalf("missing sheet read = %v, %v", grid, err)
			}
		})
	}
}

func TestLockerSerializes(t *testing.T) {
	lock := NewLocker(time.Second)
	ctx := context.Background()
	inFlight := 0
	maxInFlight := 0
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = lock.WithLock(ctx, func() error {
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				time.Sleep(5 * time.Millisecond)
				inFlight--
				return nil
			})
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	if maxInFlight != 1 {
		t.Fatalf("lock admitted %d holders at once", maxInFlight)
	}
}

func TestLockerTimesOut(t *testing.T) {
	lock := NewLocker(20 * time.Millisecond)
	ctx := context.Background()
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = lock.WithLock(ctx, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	err := lock.WithLock(ctx, func() error { return nil })
	if err != ErrLockTimeout {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	close(release)
}

func TestLockerHonorsContext(t *testing.T) {
	lock := NewLocker(time.Minute)
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = lock.WithLock(context.Background(), func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := lock.WithLock(ctx, func() error { return nil }); err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	close(release)
}
