// Package dialect abstracts the SQL databases the schema cache can live in.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL, through github.com/lib/pq
//   - MySQL: MySQL/MariaDB, through github.com/go-sql-driver/mysql
//   - SQLite: SQLite, through modernc.org/sqlite
//
// The drivers are not imported here. Programs register the ones they need
// with blank imports, as cmd/typegen does.
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Usage
//
//	drv, err := sql.Open(dialect.SQLite, "file:typegen.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache, err := sql.NewCache(drv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cache.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	fetcher := fetch.New(fetch.WithCache(cache, 24*time.Hour))
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver wrapper, statistics and the SQL cache store
package dialect
