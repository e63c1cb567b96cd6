package memory

import (
	"context"
	"errors"
	"io/fs"
	"testing"
)

func TestBackendCopiesPayloads(t *testing.T) {
	ctx := context.Background()
	b := New()
	if _, err := b.ReadTable(ctx, "pain_data"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	payload := []byte("Name\n")
	if err := b.WriteTable(ctx, "pain_data", payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	payload[0] = 'X'
	got, err := b.ReadTable(ctx, "pain_data")
	if err != nil || string(got) != "Name\n" {
		t.Fatalf("read: %v %q", err, got)
	}
	got[0] = 'Y'
	if again, _ := b.ReadTable(ctx, "pain_data"); string(again) != "Name\n" {
		t.Fatalf("stored payload mutated: %q", again)
	}
}
