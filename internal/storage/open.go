package storage

import (
	"github.com/cadre-oss/warehouse/internal/config"
	werrors "github.com/cadre-oss/warehouse/internal/errors"
)

// Open creates the backend selected by cfg.Driver.
func Open(cfg config.StorageConfig) (Backend, error) {
	var backend Backend
	var err error

	switch cfg.Driver {
	case "memory":
		backend = NewMemoryBackend()
	case "file":
		backend, err = NewFileBackend(cfg.Path)
	case "sqlite", "":
		backend, err = NewSQLiteBackend(DriverCGo, cfg.Path)
	case "sqlite-pure":
		backend, err = NewSQLiteBackend(DriverPure, cfg.Path)
	default:
		return nil, werrors.New(werrors.CodeUnsupportedDriver, "unsupported storage driver: "+cfg.Driver).
			WithSuggestion("Use one of: memory, file, sqlite, sqlite-pure")
	}
	if err != nil {
		return nil, werrors.StorageError("open "+cfg.Driver+" backend", "", err)
	}

	return backend, nil
}
