package config

import "path/filepath"

// storeFileName is fixed; only the directory is configurable.
const storeFileName = "netmon.store"

type StoreConfig struct {
	// Dir is the directory holding the store file.
	Dir string
	// Compression is the zstd level for snapshots, 0 disables compression.
	Compression int
}

func NewStoreConfig() StoreConfig {
	return StoreConfig{
		Dir:         getEnv("NETMON_STORE_PATH", "/var/lib/netmon"),
		Compression: getEnvAsInt("NETMON_COMPRESSION_LEVEL", 4),
	}
}

// Path resolves the full store file location.
func (c StoreConfig) Path() string {
	return filepath.Join(c.Dir, storeFileName)
}
