package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const envConfigPath = "CHUNKLEDGER_CONFIG"

// Config controls how the CLI opens a ledger.
type Config struct {
	ChunkThreshold int64    `toml:"chunk_threshold"`
	ReadCacheBound int      `toml:"read_cache_bound"`
	ReadOnlyDirs   []string `toml:"read_only_dirs"`
	LogLevel       string   `toml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		ChunkThreshold: 5 * 1024 * 1024,
		ReadCacheBound: 5,
		LogLevel:       "warn",
	}
}

// loadConfig returns file-backed configuration when available, otherwise
// defaults. The path comes from $CHUNKLEDGER_CONFIG or well-known
// candidates next to the working directory.
func loadConfig() Config {
	if path := os.Getenv(envConfigPath); path != "" {
		if cfg, err := configFromFile(path); err == nil {
			return cfg
		}
	}

	candidates := []string{
		"./chunkledger.toml",
		"./local/chunkledger.toml",
	}
	for _, path := range candidates {
		if cfg, err := configFromFile(path); err == nil {
			return cfg
		}
	}

	return DefaultConfig()
}

func configFromFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}
