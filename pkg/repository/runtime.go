package repository

import "github.com/spkdev/spk/pkg/storagedriver"

// NewRuntimeRepository wraps a mounted runtime's package area
// (conventionally /spfs/spk/pkg) as a read-only FSRepository, letting
// a running environment enumerate what it contains (
// "Runtime repository").
func NewRuntimeRepository(driver storagedriver.StorageDriver) *FSRepository {
	return NewReadOnlyFSRepository("runtime", driver)
}
