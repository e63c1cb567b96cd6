package dosage

import (
	"testing"

	"schmerzverlauf/testutil"
)

func TestPackageStaysStorageAgnostic(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StorageImportForbidden, "dosage is a pure package")
}
