package setup

import (
	"log/slog"
	"os"

	"netmon/internal/config"
	"netmon/internal/lib/sl"
	"netmon/internal/store"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file if one is present. Missing files are fine,
// the environment then stands on its own.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", sl.Error(err))
	}
}

// MustOpenStore loads the store, creating it if it does not exist yet.
func MustOpenStore(cfg config.StoreConfig) *store.Store {
	st, err := store.LoadOrCreate(cfg)
	if err != nil {
		slog.Error("failed to open the check store", sl.Error(err))
		os.Exit(1)
	}
	return st
}

// MustLoadStore loads an existing store read-only style and refuses to
// create one, for report generation against a daemon-owned store.
func MustLoadStore(cfg config.StoreConfig) *store.Store {
	st, err := store.Load(cfg)
	if err != nil {
		slog.Error("failed to load the check store", sl.Error(err))
		os.Exit(1)
	}
	return st
}
