package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"orderdesk/pkg/logger"

	_ "github.com/lib/pq"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Connection pool defaults
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultConnMaxIdleTime = 30 * time.Second
)

type Config struct {
	Driver Dialect `yaml:"driver"`

	// SQLite
	Path string `yaml:"path"`

	// Postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

func DefaultConfig() Config {
	return Config{
		Driver:          DialectSQLite,
		Path:            "orderdesk.db",
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		DBName:          "orderdesk",
		SSLMode:         "disable",
		MaxOpenConns:    DefaultMaxOpenConns,
		MaxIdleConns:    DefaultMaxIdleConns,
		ConnMaxLifetime: DefaultConnMaxLifetime,
		ConnMaxIdleTime: DefaultConnMaxIdleTime,
	}
}

// BuildConnectionString builds a PostgreSQL connection string from config
func (c Config) BuildConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func (c Config) Validate() error {
	switch c.Driver {
	case DialectSQLite:
		if c.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case DialectPostgres:
		if c.Host == "" || c.DBName == "" {
			return fmt.Errorf("database host and name are required for postgres")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("database port %d is out of range", c.Port)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	return nil
}

type DB struct {
	*sql.DB
	dialect Dialect
	logger  *logger.Logger
}

// Open connects, configures the pool and verifies the connection.
func Open(ctx context.Context, config Config, log *logger.Logger) (*DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log = log.WithComponent("database")

	var (
		db  *sql.DB
		err error
	)
	switch config.Driver {
	case DialectPostgres:
		log.Info("Establishing database connection",
			"host", config.Host,
			"port", config.Port,
			"database", config.DBName,
			"ssl_mode", config.SSLMode)
		db, err = openPostgres(config)
	default:
		log.Info("Opening sqlite database", "path", config.Path, "build", SQLiteBuildMode)
		db, err = openSQLite(config.Path)
	}
	if err != nil {
		log.Error("Failed to open database connection", "error", err)
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Error("Failed to ping database", "error", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, dialect: config.Driver, logger: log}, nil
}

func openPostgres(config Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.BuildConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpenConns := config.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	maxIdleConns := config.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = DefaultMaxIdleConns
	}
	connMaxLifetime := config.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = DefaultConnMaxLifetime
	}
	connMaxIdleTime := config.ConnMaxIdleTime
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = DefaultConnMaxIdleTime
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(SQLiteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection: a single writer, and ":memory:" stays one database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

func (db *DB) Dialect() Dialect { return db.dialect }

// Store returns the repositories bound to the connection pool.
func (db *DB) Store() Store {
	return &sqlStore{q: db.DB, db: db.DB, dialect: db.dialect}
}

func (db *DB) Migrate(ctx context.Context) error {
	version, err := ApplyMigrations(ctx, db.DB, db.dialect)
	if err != nil {
		db.logger.Error("Failed to apply migrations", "error", err)
		return err
	}
	db.logger.Info("Schema up to date", "version", version)
	return nil
}

// HealthCheck pings and runs a trivial query
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected query result: got %d, expected 1", result)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}
