package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrCacheClosed is returned by cache operations started or finished after Close.
var ErrCacheClosed = errors.New("cache closed")

const cacheSchema = `CREATE TABLE IF NOT EXISTS assets (
	location TEXT PRIMARY KEY,
	data     BLOB NOT NULL,
	stored   INTEGER NOT NULL
)`

// Cache keeps fetched score files in sqlite database. Entries are keyed by
// location which carries version code, so re-exported score with new code
// is fetched again while old entries simply stay unused.
type Cache struct {
	next Fetcher
	log  *zap.Logger

	mu   sync.Mutex
	conn *sqlite.Conn
}

// NewCache opens (creating when necessary) cache database and wraps fetcher.
func NewCache(next Fetcher, path string, log *zap.Logger) (*Cache, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := sqlitex.Execute(conn, cacheSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare cache db: %w", err)
	}
	return &Cache{next: next, conn: conn, log: log}, nil
}

func (c *Cache) Locate(name string) string {
	return c.next.Locate(name)
}

// Fetch returns cached content when present, otherwise fetches and stores
// it. Failures are never cached.
func (c *Cache) Fetch(ctx context.Context, name string) ([]byte, error) {
	loc := c.next.Locate(name)

	data, found, err := c.lookup(loc)
	if err != nil {
		c.log.Warn("Cache lookup failed", zap.String("location", loc), zap.Error(err))
	} else if found {
		c.log.Debug("Cache hit", zap.String("location", loc))
		return data, nil
	}

	data, err = c.next.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return data, nil
	}
	if err := c.store(loc, data); err != nil {
		c.log.Warn("Unable to store in cache", zap.String("location", loc), zap.Error(err))
	}
	return data, nil
}

func (c *Cache) lookup(loc string) (data []byte, found bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, false, ErrCacheClosed
	}
	err = sqlitex.Execute(c.conn, `SELECT data FROM assets WHERE location = ?`,
		&sqlitex.ExecOptions{
			Args: []any{loc},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var rerr error
				data, rerr = io.ReadAll(stmt.ColumnReader(0))
				found = true
				return rerr
			},
		})
	return data, found, err
}

func (c *Cache) store(loc string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrCacheClosed
	}
	return sqlitex.Execute(c.conn, `INSERT OR REPLACE INTO assets (location, data, stored) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{loc, data, time.Now().Unix()}})
}

// Len returns number of cached entries.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return 0, ErrCacheClosed
	}
	var n int
	err := sqlitex.Execute(c.conn, `SELECT count(*) FROM assets`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		}})
	return n, err
}

// Close releases database and wrapped fetcher. Fetches still in flight
// complete without touching the cache. Repeated calls are no-ops.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	return multierr.Combine(conn.Close(), c.next.Close())
}
