package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

func TestStorageImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"database/sql", true},
		{"net/http", true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"modernc.org/sqlite", true},
		{"schmerzverlauf/internal/infra/blob/fs", true},
		{"schmerzverlauf/internal/table", false},
		{"golang.org/x/text/cases", false},
		{"encoding/csv", false},
	}
	for _, c := range cases {
		if got := StorageImportForbidden(c.in); got != c.want {
			t.Fatalf("StorageImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	if !InternalImportForbidden("example.com/mod/internal/x") || InternalImportForbidden("example.com/mod/pkg/x") {
		t.Fatalf("unexpected predicate result")
	}
}

func TestHasPathPrefix(t *testing.T) {
	if !HasPathPrefix("a/b", "a/b") || !HasPathPrefix("a/b/c", "a/b") || HasPathPrefix("a/bc", "a/b") {
		t.Fatalf("unexpected prefix result")
	}
}

func TestAssertNoDirectImportsIgnoresTestFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("x.go", "package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	write("x_test.go", "package tmp\nimport \"net/http\"\nvar _ = http.MethodGet")
	AssertNoDirectImports(t, dir, StorageImportForbidden, "pure package")
}

func TestDirectImportViolationsReportsFile(t *testing.T) {
	dir := t.TempDir()
	src := "package tmp\nimport \"database/sql\"\nvar _ *sql.DB"
	if err := os.WriteFile(filepath.Join(dir, "db.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, StorageImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql (in db.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), StorageImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestBoundaryViolations(t *testing.T) {
	pkgs := []*packages.Package{
		{PkgPath: "m/internal/blob", Imports: map[string]*packages.Package{"m/internal/infra/blob/fs": nil}},
		{PkgPath: "m/internal/infra/blob/fs", Imports: map[string]*packages.Package{"m/internal/blob/core": nil}},
		{PkgPath: "m/internal/storage", Imports: map[string]*packages.Package{"m/internal/infra/blob/s3": nil, "m/internal/blob": nil}},
	}
	viols := boundaryViolations(pkgs, "m/internal/blob", "m/internal/infra/blob")
	if len(viols) != 1 || viols[0] != "m/internal/storage: m/internal/infra/blob/s3" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestFailIfViolations(t *testing.T) {
	var r recordingFatal
	failIfViolations(&r, "bad", "why", nil)
	if r.msg != "" {
		t.Fatalf("unexpected failure %q", r.msg)
	}
	failIfViolations(&r, "bad", "why", []string{"a", "b"})
	if !strings.Contains(r.msg, "bad (why):\na\nb") {
		t.Fatalf("unexpected message %q", r.msg)
	}
}
