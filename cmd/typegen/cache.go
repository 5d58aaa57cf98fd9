package main

import (
	"context"
	"fmt"
	"log/slog"

	// Drivers of the SQL schema caches.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/typegen"
	"github.com/syssam/typegen/dialect"
	"github.com/syssam/typegen/dialect/sql"
)

var cacheDrivers = []string{"memory", dialect.SQLite, dialect.Postgres, dialect.MySQL}

// schemaCache is an open schema cache. cache is nil when caching is
// disabled; stats is nil unless the cache lives in a SQL database.
type schemaCache struct {
	cache  typegen.Cache
	stats  *sql.StatsDriver
	logger *slog.Logger
	closer func() error
}

// openCache returns the schema cache described by cfg.
func openCache(ctx context.Context, cfg CacheConfig, logger *slog.Logger) (*schemaCache, error) {
	switch cfg.Driver {
	case "":
		return &schemaCache{logger: logger}, nil
	case "memory":
		return &schemaCache{cache: typegen.NewMemoryCache(), logger: logger}, nil
	}
	if !dialect.Supported(cfg.Driver) {
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cache driver %s requires a dsn", cfg.Driver)
	}

	base, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if cfg.Driver == dialect.SQLite {
		// SQLite allows one writer; concurrent cache writes wait for the
		// connection instead of failing as busy.
		base.DB().SetMaxOpenConns(1)
	}
	opts := []sql.StatsOption{sql.WithSlowQueryLog(logger)}
	if cfg.SlowQuery > 0 {
		opts = append(opts, sql.WithSlowThreshold(cfg.SlowQuery))
	}
	drv := sql.NewStatsDriver(sql.NewDebugDriver(base, logger), opts...)

	var copts []sql.CacheOption
	if cfg.Table != "" {
		copts = append(copts, sql.WithTable(cfg.Table))
	}
	cache, err := sql.NewCache(drv, copts...)
	if err == nil {
		err = cache.Migrate(ctx)
	}
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	logger.Debug("schema cache ready", "driver", cfg.Driver, "slow_query", drv.SlowThreshold())
	return &schemaCache{cache: cache, stats: drv, logger: logger, closer: drv.Close}, nil
}

// tune applies the settings of a reloaded configuration that an open cache
// can change.
func (c *schemaCache) tune(cfg CacheConfig) {
	if c.stats == nil || cfg.SlowQuery <= 0 || cfg.SlowQuery == c.stats.SlowThreshold() {
		return
	}
	c.logger.Debug("schema cache slow query threshold changed", "from", c.stats.SlowThreshold(), "to", cfg.SlowQuery)
	c.stats.SetSlowThreshold(cfg.SlowQuery)
}

// report logs the statement statistics gathered since the last report and
// starts counting afresh.
func (c *schemaCache) report() {
	if c.stats == nil {
		return
	}
	c.logger.Debug("schema cache statistics", "stats", c.stats.QueryStats().Stats().String())
	c.stats.QueryStats().Reset()
}

// Close releases the database of a SQL cache.
func (c *schemaCache) Close() {
	if c.closer == nil {
		return
	}
	if err := c.closer(); err != nil {
		c.logger.Warn("close schema cache", "error", err)
	}
}
