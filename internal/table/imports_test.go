package table

import (
	"testing"

	"schmerzverlauf/testutil"
)

func TestPackageStaysStorageAgnostic(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StorageImportForbidden, "table is a pure package")
}
