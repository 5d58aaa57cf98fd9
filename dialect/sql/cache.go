package sql

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/typegen"
	"github.com/syssam/typegen/dialect"
)

// DefaultCacheTable is the table the cache store uses unless configured
// otherwise.
const DefaultCacheTable = "typegen_cache"

// ErrCorruptEntry is returned by Decode when a cache row does not hold a
// valid record.
var ErrCorruptEntry = errors.New("dialect/sql: corrupt cache entry")

// Cache is a typegen.Cache stored in a SQL table. Values are wrapped in a
// msgpack record carrying a checksum, so a damaged row reads as a miss.
type Cache struct {
	drv   dialect.Driver
	table string
	now   func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache) error

// WithTable sets the cache table name.
func WithTable(name string) CacheOption {
	return func(c *Cache) error {
		if !isValidIdentifier(name) {
			return fmt.Errorf("dialect/sql: invalid cache table name %q", name)
		}
		c.table = name
		return nil
	}
}

// NewCache returns a cache store over drv.
func NewCache(drv dialect.Driver, opts ...CacheOption) (*Cache, error) {
	if !dialect.Supported(drv.Dialect()) {
		return nil, fmt.Errorf("dialect/sql: unsupported dialect %q", drv.Dialect())
	}
	c := &Cache{drv: drv, table: DefaultCacheTable, now: time.Now}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// record is the msgpack payload of a cache row.
type record struct {
	Value    []byte `msgpack:"v"`
	Checksum uint32 `msgpack:"c"`
	StoredAt int64  `msgpack:"t"`
}

// Encode wraps value in a cache record.
func Encode(value []byte, storedAt time.Time) ([]byte, error) {
	return msgpack.Marshal(record{
		Value:    value,
		Checksum: crc32.ChecksumIEEE(value),
		StoredAt: storedAt.Unix(),
	})
}

// Decode unwraps a cache record and verifies its checksum.
func Decode(payload []byte) ([]byte, time.Time, error) {
	var r record
	if err := msgpack.Unmarshal(payload, &r); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	if crc32.ChecksumIEEE(r.Value) != r.Checksum {
		return nil, time.Time{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptEntry)
	}
	return r.Value, time.Unix(r.StoredAt, 0), nil
}

// Migrate creates the cache table if it does not exist.
func (c *Cache) Migrate(ctx context.Context) error {
	blob := "BLOB"
	switch c.drv.Dialect() {
	case dialect.Postgres:
		blob = "BYTEA"
	case dialect.MySQL:
		blob = "LONGBLOB"
	}
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (cache_key VARCHAR(512) NOT NULL PRIMARY KEY, payload %s NOT NULL, expires_at BIGINT NOT NULL)",
		c.table, blob,
	)
	if err := c.drv.Exec(ctx, query, []any{}, nil); err != nil {
		return fmt.Errorf("dialect/sql: migrate cache: %w", err)
	}
	return nil
}

// Get implements typegen.Cache. Expired and corrupt rows are deleted and
// reported as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var rows Rows
	query := fmt.Sprintf("SELECT payload, expires_at FROM %s WHERE cache_key = %s", c.table, c.arg(1))
	if err := c.drv.Query(ctx, query, []any{key}, &rows); err != nil {
		return nil, err
	}
	var (
		payload []byte
		expires int64
		found   bool
	)
	for rows.Next() {
		if err := rows.Scan(&payload, &expires); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("dialect/sql: scan cache row: %w", err)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if expires > 0 && c.now().Unix() >= expires {
		return nil, c.Delete(ctx, key)
	}
	value, _, err := Decode(payload)
	if err != nil {
		return nil, c.Delete(ctx, key)
	}
	return value, nil
}

// Set implements typegen.Cache. Expired rows are purged in the same
// transaction as the write.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	payload, err := Encode(value, now)
	if err != nil {
		return fmt.Errorf("dialect/sql: encode cache entry: %w", err)
	}
	var expires int64
	if ttl > 0 {
		expires = now.Add(ttl).Unix()
	}
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: begin cache write: %w", err)
	}
	purge := fmt.Sprintf("DELETE FROM %s WHERE expires_at > 0 AND expires_at <= %s", c.table, c.arg(1))
	if err := tx.Exec(ctx, purge, []any{now.Unix()}, nil); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Exec(ctx, c.upsert(), []any{key, payload, expires}, nil); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dialect/sql: commit cache write: %w", err)
	}
	return nil
}

// rollback rolls tx back and returns err, extended by the rollback error if
// any.
func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: rolling back cache write: %v", err, rerr)
	}
	return err
}

// Delete implements typegen.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = %s", c.table, c.arg(1))
	return c.drv.Exec(ctx, query, []any{key}, nil)
}

// DeletePrefix implements typegen.Cache.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key LIKE %s", c.table, c.arg(1))
	if c.drv.Dialect() == dialect.SQLite {
		query += ` ESCAPE '\'`
	}
	return c.drv.Exec(ctx, query, []any{escapeLike(prefix) + "%"}, nil)
}

// Clear implements typegen.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	return c.drv.Exec(ctx, "DELETE FROM "+c.table, []any{}, nil)
}

// upsert returns the insert-or-replace statement of the driver's dialect.
func (c *Cache) upsert() string {
	insert := fmt.Sprintf("INSERT INTO %s (cache_key, payload, expires_at) VALUES (%s, %s, %s)",
		c.table, c.arg(1), c.arg(2), c.arg(3))
	if c.drv.Dialect() == dialect.MySQL {
		return insert + " ON DUPLICATE KEY UPDATE payload = VALUES(payload), expires_at = VALUES(expires_at)"
	}
	return insert + " ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at"
}

// arg returns the i-th bind parameter.
func (c *Cache) arg(i int) string {
	if c.drv.Dialect() == dialect.Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

var _ typegen.Cache = (*Cache)(nil)
