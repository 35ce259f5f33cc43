package db

import (
	"fmt"
	"net/url"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/racegraph/internal/platform/logger"
)

// OpenSQLite opens a file-backed store for single-node deployments and tests.
//
// SQLite allows one writer at a time, so the pool is pinned to a single connection and
// concurrent transactions queue on it instead of failing with SQLITE_BUSY.
func OpenSQLite(path string, logg *logger.Logger) (*gorm.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: path required")
	}
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if logg != nil {
		logg.With("service", "SQLiteService").Debug("sqlite opened", "path", path)
	}
	return db, nil
}
