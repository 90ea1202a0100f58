package sqlite

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/uptrace/bun"

	householdcontext "fridge/frontend/shared/context"
	"fridge/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "migrations")
	if err := ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func countHouseholds(t *testing.T, db *DB, id string) int {
	t.Helper()
	var count int
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM households WHERE id = ?`, id).Scan(ctx, &count)
	})
	if err != nil {
		t.Fatalf("count households: %v", err)
	}
	return count
}

func TestWithWriteTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	boom := errors.New("boom")
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO households (id) VALUES (?)`, "rollback-household"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got: %v", err)
	}
	if count := countHouseholds(t, db, "rollback-household"); count != 0 {
		t.Fatalf("expected rollback to remove insert, count=%d", count)
	}
}

func TestWithWriteTxLogsRollbackWithHousehold(t *testing.T) {
	db := openTestDB(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := householdcontext.NewContextWithHousehold(context.Background(), models.Household{ID: "household-42"})
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return errors.New("constraint failed")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	out := buf.String()
	if !strings.Contains(out, "household_id=household-42") || !strings.Contains(out, "mode=write") {
		t.Fatalf("expected rollback logged with household, got %q", out)
	}

	buf.Reset()
	if err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error { return nil }); err != nil {
		t.Fatalf("write tx: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged on commit, got %q", buf.String())
	}
}

func TestWithWriteTxCommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO households (id) VALUES (?)`, "commit-household")
		return err
	})
	if err != nil {
		t.Fatalf("write tx failed: %v", err)
	}
	if count := countHouseholds(t, db, "commit-household"); count != 1 {
		t.Fatalf("expected committed insert, count=%d", count)
	}
}

func TestWithReadTxRejectsWrite(t *testing.T) {
	db := openTestDB(t)

	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO households (id) VALUES (?)`, "read-only-household")
		return err
	})
	if err == nil && countHouseholds(t, db, "read-only-household") > 0 {
		t.Fatalf("expected write in read tx to be blocked; write succeeded")
	}
}

func TestTxOnClosedHandles(t *testing.T) {
	var db *DB
	if err := db.WithWriteTx(context.Background(), func(context.Context, bun.Tx) error { return nil }); !errors.Is(err, errWriteNotReady) {
		t.Fatalf("expected errWriteNotReady, got %v", err)
	}
	if err := (&DB{}).WithReadTx(context.Background(), func(context.Context, bun.Tx) error { return nil }); !errors.Is(err, errReadNotReady) {
		t.Fatalf("expected errReadNotReady, got %v", err)
	}
}

func TestOpenDBRequiresPath(t *testing.T) {
	if _, err := OpenDB("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}
