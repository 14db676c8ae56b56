package storage

import (
	"testing"

	"taskmate/testutil"
)

func TestAdapterUsesKVAbstraction(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InfraImportForbidden, "backends are selected by internal/kv")
}
