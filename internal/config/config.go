package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// StoreBackend selects the record store adapter.
const (
	StoreJSONDoc = "jsondoc"
	StoreSQLite  = "sqlite"
)

type Config struct {
	// DataDir holds the per-collection documents (and the sqlite file when
	// that backend is selected).
	DataDir      string
	StoreBackend string

	// RedisAddr, when set, backs the notification feed with redis; empty
	// means the file-backed feed in DataDir.
	RedisAddr string
	RedisDB   int

	// DefaultTeam is used when the team directory is unreachable.
	DefaultTeam string

	QueueWorkers int
	QueueRetries int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	return &Config{
		DataDir:      getenv("REVIEWFLOW_DATA_DIR", "data"),
		StoreBackend: getenv("REVIEWFLOW_STORE", StoreJSONDoc),
		RedisAddr:    getenv("REVIEWFLOW_REDIS_ADDR", ""),
		RedisDB:      getenvInt("REVIEWFLOW_REDIS_DB", 0),
		DefaultTeam:  getenv("REVIEWFLOW_DEFAULT_TEAM", "UNASSIGNED"),
		QueueWorkers: getenvInt("REVIEWFLOW_QUEUE_WORKERS", 2),
		QueueRetries: getenvInt("REVIEWFLOW_QUEUE_RETRIES", 3),
	}
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("missing data dir (REVIEWFLOW_DATA_DIR)")
	}
	switch c.StoreBackend {
	case StoreJSONDoc, StoreSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.DefaultTeam == "" {
		return errors.New("missing default team (REVIEWFLOW_DEFAULT_TEAM)")
	}
	if c.QueueWorkers < 1 {
		return fmt.Errorf("invalid worker count %d", c.QueueWorkers)
	}
	return nil
}

// SQLitePath is the database file used by the sqlite store backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "reviewflow.db")
}
