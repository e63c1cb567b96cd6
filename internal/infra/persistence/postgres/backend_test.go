package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"schmerzverlauf/internal/infra/persistence/postgres/testutil"
)

func openStub(t *testing.T) (*Backend, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	b, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return b, conn
}

func TestOpenEnsuresRelation(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS tables") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected DDL, got execs: %v", conn.Execs)
	}
}

func TestBackendUpsertAndRead(t *testing.T) {
	ctx := context.Background()
	b, conn := openStub(t)
	if _, err := b.ReadTable(ctx, "pain_data"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	for _, p := range []string{"Name\n", "Name\nAlice\n"} {
		if err := b.WriteTable(ctx, "pain_data", []byte(p)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := b.ReadTable(ctx, "pain_data")
	if err != nil || string(got) != "Name\nAlice\n" {
		t.Fatalf("read: %v %q", err, got)
	}
	if n := len(conn.Tables["tables"]); n != 1 {
		t.Fatalf("expected single row after upsert, got %d", n)
	}
}

func TestBackendSurfacesFailures(t *testing.T) {
	ctx := context.Background()
	b, conn := openStub(t)
	conn.FailBegin = true
	if err := b.WriteTable(ctx, "pain_data", nil); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailExec = true
	if err := b.WriteTable(ctx, "pain_data", nil); err == nil {
		t.Fatalf("expected exec failure")
	}
	if conn.Rollbacks == 0 {
		t.Fatalf("expected rollback after failed exec")
	}
	conn.FailExec = false
	conn.FailCommit = true
	if err := b.WriteTable(ctx, "pain_data", nil); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.FailCommit = false
	conn.FailQuery = true
	if _, err := b.ReadTable(ctx, "pain_data"); err == nil || errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected query failure, got %v", err)
	}
}

func TestOpenPingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := Open(context.Background(), "postgres://example"); err == nil {
		t.Fatalf("expected ping failure")
	}
}
