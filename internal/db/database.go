package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultPoolSize is used when Config.PoolSize is not positive.
const DefaultPoolSize = 10

// Config describes how to reach the relational store.
type Config struct {
	// Driver is DriverPostgres or DriverSQLite.
	Driver string

	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	// PoolSize bounds open connections. Callers wait for a free connection
	// when the pool is exhausted.
	PoolSize int

	// SQLitePath is the database file for DriverSQLite.
	SQLitePath string
}

// Database is the pooled relational store backing the object registry and
// the issue store. It is safe for concurrent use.
type Database struct {
	gorm   *gorm.DB
	driver string
	logger *zap.Logger
}

// Open connects to the store, verifies the connection and applies pending
// migrations.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("db")
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(logger),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if cfg.Driver == DriverSQLite {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
		poolSize = 1
	}
	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetMaxIdleConns(poolSize)

	d := &Database{gorm: gdb, driver: cfg.Driver, logger: logger}

	if err := d.testConnection(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := d.RunMigrations(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info("Database ready",
		zap.String("driver", cfg.Driver),
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name),
		zap.Int("pool_size", poolSize),
	)
	return d, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.New(postgres.Config{DSN: postgresDSN(cfg)}), nil
	case DriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, errors.New("sqlite path is required")
		}
		return sqlite.Dialector{DriverName: "sqlite", DSN: sqliteDSN(cfg.SQLitePath)}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
	return u.String()
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (d *Database) testConnection(ctx context.Context) error {
	var one int
	if err := d.gorm.WithContext(ctx).Raw("SELECT 1").Row().Scan(&one); err != nil {
		return fmt.Errorf("database connection test: %w", err)
	}
	if one != 1 {
		return errors.New("database connection test returned unexpected value")
	}
	return nil
}

// Ping reports whether the store currently answers.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases every pooled connection.
func (d *Database) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
