// Package sql stores fetched type documents in a SQL database.
//
// The package wraps database/sql in a dialect.Driver and builds a
// typegen.Cache on top of it, so the fetcher can skip the network for type
// documents it has seen before, across runs and machines.
//
// # Drivers
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://localhost/typegen")
//
// StatsDriver counts statements and flags slow ones; DebugDriver logs every
// statement at debug level. Both wrap any dialect.Driver:
//
//	drv := sql.NewStatsDriver(sql.NewDebugDriver(base, logger),
//	    sql.WithSlowQueryLog(logger),
//	)
//
// # Cache
//
// Cache keeps one row per type URL in a single table:
//
//	CREATE TABLE typegen_cache (
//	    cache_key  VARCHAR(512) NOT NULL PRIMARY KEY,
//	    payload    BLOB         NOT NULL, -- BYTEA on Postgres, LONGBLOB on MySQL
//	    expires_at BIGINT       NOT NULL  -- unix seconds, 0 for never
//	)
//
// The payload is a msgpack record holding the document, its CRC-32 and the
// time it was stored. Rows that fail to decode are deleted and read as misses.
// Writes are upserts in the dialect's syntax.
package sql
