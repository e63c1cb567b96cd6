package blob

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("default driver: %v %v", err, fsStore)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory driver: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	if _, err := Replace(ctx, s, "tables/pain.csv", []byte("v1"), PutOptions{}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	info, err := Replace(ctx, s, "tables/pain.csv", []byte("v22"), PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if info.Size != 3 {
		t.Fatalf("unexpected size %d", info.Size)
	}
	_, rc, err := s.Get(ctx, "tables/pain.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "v22" {
		t.Fatalf("unexpected payload %q", b)
	}
	if _, _, err := s.Get(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
