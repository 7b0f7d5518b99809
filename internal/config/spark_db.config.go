package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DatabaseURL prefers DB_CONN and otherwise assembles a DSN from DB_* parts.
func DatabaseURL() string {
	if dsn := os.Getenv("DB_CONN"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "spark"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_HOST", "postgres"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "spark"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func ConnectDB(ctx context.Context, logger *zap.Logger) (*pgxpool.Pool, error) {
	maxConns := getEnvAsInt("DB_MAX_CONNS", 25)
	minConns := getEnvAsInt("DB_MIN_CONNS", 2)
	maxConnLifetime := getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	maxConnIdleTime := getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)

	poolConfig, err := pgxpool.ParseConfig(DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = int32(minConns)
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	poolConfig.ConnConfig.StatementCacheCapacity = 500
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	logger.Info("connecting to database",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("db", poolConfig.ConnConfig.Database),
		zap.Int("max_conns", maxConns),
		zap.Int("min_conns", minConns))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stat := pool.Stat()
	logger.Info("database connected",
		zap.Int32("idle", stat.IdleConns()),
		zap.Int32("total", stat.TotalConns()))
	return pool, nil
}
