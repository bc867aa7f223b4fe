package backend

import (
	"errors"
	"fmt"

	"imprimecheque/internal/config"
)

var (
	ErrUnknownBackend = errors.New("unknown data backend")
	ErrMissingDSN     = errors.New("missing database location")
)

// FromAppConfig picks the store settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         Kind(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		SeedFile:     appConfig.SeedFile,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected store has what it needs to open.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("%w: SQLITE_DB_PATH is required for the sqlite backend", ErrMissingDSN)
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", ErrMissingDSN)
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("%w: %q, want one of %v", ErrUnknownBackend, c.Type, Kinds())
	}
	return nil
}

// Kinds lists the supported backends.
func Kinds() []Kind {
	return []Kind{MemoryBackend, SQLiteBackend, PostgresBackend}
}
