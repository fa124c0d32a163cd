package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"employee-directory/internal/config"
	"employee-directory/internal/logger"
	"employee-directory/internal/models"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
)

// sqliteDriverName is go-sqlite3 with lower() replaced by a Unicode-aware
// version. The built-in one folds ASCII only, so "Émile" would never match
// "émile" in a case-insensitive search.
const sqliteDriverName = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
}

func unicodeLower(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		if s == nil {
			return nil
		}
	}
	return v
}

// Credentials is the login part of a connection target.
type Credentials struct {
	Username string
	Password string
}

// BuildDSN combines the login with the host, port and database name from
// the environment. For sqlite the database name is used as the file name.
func BuildDSN(cfg config.DatabaseConfig, creds Credentials) string {
	if cfg.Driver == config.DriverSQLite {
		return cfg.Name + ".db"
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(creds.Username, creds.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Open connects and pings. It does not touch the schema.
func Open(ctx context.Context, driver, dsn string, log logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.New(sqlite.Config{DriverName: sqliteDriverName, DSN: dsn})
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError:       true,
		DisableAutomaticPing: true,
		NowFunc:              func() time.Time { return time.Now().UTC() },
		Logger:               newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return db, nil
}

// Migrate creates missing tables, columns and indexes. Existing data is kept.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Employee{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(fmt.Sprintf(format, args...), map[string]interface{}{"component": "gorm"})
}

func newGormLogger(log logger.Logger) gormlogger.Interface {
	if log == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(gormWriter{log: log}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}
