package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/model"
)

const (
	defaultDSN      = "taskboard.db"
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxIdleTime = 15 * time.Minute
)

// driverParams are appended to the DSN unless already present. Foreign keys
// are per connection in SQLite, so they have to ride on the DSN.
var driverParams = [][2]string{
	{"_foreign_keys", "on"},
	{"_busy_timeout", "5000"},
}

// NewDB opens the SQLite store, tunes the pool and migrates every model.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if err := ensureDir(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(withDriverParams(dsn)), &gorm.Config{
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.AutoMigrate(&model.User{}, &model.Board{}, &model.Task{}, &model.Session{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	log.WithField("dsn", redactDSN(dsn)).Debug("database ready")
	return db, nil
}

func withDriverParams(dsn string) string {
	for _, p := range driverParams {
		if strings.Contains(dsn, p[0]+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p[0] + "=" + p[1]
	}
	return dsn
}

// redactDSN drops the query string, which may carry driver credentials.
func redactDSN(dsn string) string {
	return strings.SplitN(dsn, "?", 2)[0]
}

// ensureDir creates the parent directory of a file-backed database.
func ensureDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(redactDSN(strings.TrimPrefix(dsn, "file:")))
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
