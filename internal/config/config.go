package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gzhole/personaguard/internal/store"
)

const (
	DefaultConfigDir   = ".personaguard"
	DefaultPersonaFile = "persona.yaml"
	DefaultPacksDir    = "packs"
	DefaultStateFile   = "learning.json"
	DefaultSQLiteFile  = "learning.db"
	DefaultLogFile     = "audit.jsonl"
	DefaultRedisURL    = "redis://localhost:6379/0"

	// RedisURLEnv overrides DefaultRedisURL when --state is not given.
	RedisURLEnv = "PERSONAGUARD_REDIS_URL"
)

// Backend selects where learning snapshots are kept.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

type Config struct {
	PersonaPath string
	PacksDir    string
	LogPath     string
	ConfigDir   string
	Backend     Backend

	// StatePath is a file path for the file and sqlite backends and a
	// redis:// URL for the redis backend.
	StatePath string
}

// Load resolves paths, filling empty arguments with defaults under
// ~/.personaguard, which is created if missing.
func Load(personaPath, statePath, logPath, backend string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)

	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir: configDir,
		PacksDir:  filepath.Join(configDir, DefaultPacksDir),
	}

	switch b := Backend(strings.ToLower(backend)); b {
	case "", BackendFile:
		cfg.Backend = BackendFile
	case BackendSQLite, BackendRedis:
		cfg.Backend = b
	default:
		return nil, fmt.Errorf("unknown store backend %q (want file, sqlite or redis)", backend)
	}

	if personaPath != "" {
		cfg.PersonaPath = personaPath
	} else {
		cfg.PersonaPath = filepath.Join(configDir, DefaultPersonaFile)
	}

	if logPath != "" {
		cfg.LogPath = logPath
	} else {
		cfg.LogPath = filepath.Join(configDir, DefaultLogFile)
	}

	switch {
	case statePath != "":
		cfg.StatePath = statePath
	case cfg.Backend == BackendSQLite:
		cfg.StatePath = filepath.Join(configDir, DefaultSQLiteFile)
	case cfg.Backend == BackendRedis:
		cfg.StatePath = os.Getenv(RedisURLEnv)
		if cfg.StatePath == "" {
			cfg.StatePath = DefaultRedisURL
		}
	default:
		cfg.StatePath = filepath.Join(configDir, DefaultStateFile)
	}

	return cfg, nil
}

// OpenStore opens the configured snapshot backend.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Backend {
	case BackendSQLite:
		return store.NewSQLiteStore(c.StatePath)
	case BackendRedis:
		return store.OpenRedisStore(ctx, c.StatePath)
	default:
		return store.NewFileStore(c.StatePath), nil
	}
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
