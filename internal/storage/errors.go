package storage

import werrors "github.com/cadre-oss/warehouse/internal/errors"

// IsStorageError reports whether err is a storage failure, including a
// quota rejection.
func IsStorageError(err error) bool {
	return werrors.IsStorage(err)
}
