package openapi

import (
	"bytes"
	"os"
	"testing"
)

func TestSpecReturnsCopyAndMatchesFile(t *testing.T) {
	want, err := os.ReadFile("schmerzverlauf.yaml")
	if err != nil {
		t.Fatalf("read schmerzverlauf.yaml: %v", err)
	}

	spec := Spec()
	if !bytes.Equal(spec, want) {
		t.Fatalf("Spec does not match embedded OpenAPI contents")
	}
	spec[0] ^= 0xFF
	if bytes.Equal(Spec(), spec) {
		t.Fatalf("Spec mutation leaked into embedded content")
	}
}

func TestVersionAndOperations(t *testing.T) {
	version, err := Version()
	if err != nil || version == "" {
		t.Fatalf("version: %q %v", version, err)
	}
	ops, err := Operations()
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	seen := map[Operation]bool{}
	for _, op := range ops {
		seen[op] = true
	}
	for _, want := range []Operation{
		{Method: "post", Path: "/api/v1/login"},
		{Method: "post", Path: "/api/v1/pain"},
		{Method: "get", Path: "/api/v1/medication/export"},
	} {
		if !seen[want] {
			t.Fatalf("missing operation %+v", want)
		}
	}
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Path > ops[i].Path {
			t.Fatalf("operations not sorted at %d", i)
		}
	}
}
