package sqlite

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestBackendSnapshotsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tracker.db")
	b, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if b.Path() != path {
		t.Fatalf("unexpected path %s", b.Path())
	}
	if _, err := b.ReadTable(ctx, "pain_data"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if err := b.WriteTable(ctx, "pain_data", []byte("Name\nAlice\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.WriteTable(ctx, "pain_data", []byte("Name\nAlice\nBob\n")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := b.WriteTable(ctx, "med_data", []byte("Name\n")); err != nil {
		t.Fatalf("write med: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.ReadTable(ctx, "pain_data")
	if err != nil || string(got) != "Name\nAlice\nBob\n" {
		t.Fatalf("read: %v %q", err, got)
	}
	var n int
	if err := reopened.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM tables`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("expected two rows, got %d (%v)", n, err)
	}
}

func TestBackendEmptyPayload(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = b.Close() }()
	if err := b.WriteTable(ctx, "pain_data", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := b.ReadTable(ctx, "pain_data")
	if err != nil || len(got) != 0 {
		t.Fatalf("read: %v %q", err, got)
	}
}
