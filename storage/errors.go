package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// StorageError wraps any failure raised by the engine or the fallback file
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrDuplicateID is reported when a create would reuse an existing id
var ErrDuplicateID = errors.New("submission id already exists")

// IsStorageError reports whether err came from the storage layer
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsDuplicateKey reports whether err is a primary-key or unique violation,
// for either engine or the fallback file
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateID)
}
