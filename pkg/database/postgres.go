package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres представляет подключение к PostgreSQL
type Postgres struct {
	Pool *pgxpool.Pool
}

// Config представляет конфигурацию PostgreSQL
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Connection pool settings
	MaxConns    int
	MinConns    int
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
	HealthCheck time.Duration
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
}

// NewConfig создает конфигурацию по умолчанию
func NewConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          5432,
		User:          "postgres",
		Password:      "postgres",
		Database:      "postgres",
		SSLMode:       "disable",
		MaxConns:      20,
		MinConns:      5,
		MaxConnLife:   30 * time.Minute,
		MaxConnIdle:   5 * time.Minute,
		HealthCheck:   30 * time.Second,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	}
}

// ConnString возвращает строку подключения для pgx
func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect устанавливает подключение к PostgreSQL с retry логикой
func Connect(ctx context.Context, config *Config) (*Postgres, error) {
	var lastErr error

	// Пытаемся подключиться с retry
	for i := 0; i <= config.MaxRetries; i++ {
		poolConfig, err := pgxpool.ParseConfig(config.ConnString())
		if err != nil {
			return nil, fmt.Errorf("failed to parse pool config: %w", err)
		}

		poolConfig.HealthCheckPeriod = config.HealthCheck
		poolConfig.MaxConns = int32(config.MaxConns)
		poolConfig.MinConns = int32(config.MinConns)
		poolConfig.MaxConnLifetime = config.MaxConnLife
		poolConfig.MaxConnIdleTime = config.MaxConnIdle
		poolConfig.MaxConnLifetimeJitter = 30 * time.Second

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to database: %w", err)
			if i < config.MaxRetries {
				time.Sleep(config.RetryInterval)
			}
			continue
		}

		// Проверяем подключение
		if err := pool.Ping(ctx); err != nil {
			lastErr = fmt.Errorf("failed to ping database: %w", err)
			pool.Close()
			if i < config.MaxRetries {
				time.Sleep(config.RetryInterval)
			}
			continue
		}

		return &Postgres{Pool: pool}, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d retries: %w", config.MaxRetries, lastErr)
}

// OpenStdlib открывает database/sql подключение через pgx stdlib драйвер.
// Используется для запуска goose-миграций, которым нужен *sql.DB.
func OpenStdlib(config *Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open stdlib connection: %w", err)
	}
	return db, nil
}

// Close закрывает подключение к базе данных
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// HealthCheck проверяет состояние подключения к базе данных
func (p *Postgres) HealthCheck(ctx context.Context) error {
	if p.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	var result string
	return p.Pool.QueryRow(ctx, "SELECT 'healthy'").Scan(&result)
}
