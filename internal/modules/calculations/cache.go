// Package calculations provides a SQLite-backed TTL cache for expensive
// derived results (covariance matrices, frontier runs). The analytics
// packages never require it; callers that want memoization pass it in.
package calculations

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Cache stores JSON-encoded values keyed by (category, key) with expiration.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCache creates a cache on the calculations database.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "calculations").Logger(),
	}
}

// Get unmarshals the cached value into v. The bool reports whether a live
// entry existed; expired entries count as absent.
func (c *Cache) Get(category, key string, v any) (bool, error) {
	var value []byte
	var expiresAt int64
	err := c.db.QueryRow(
		"SELECT value, expires_at FROM calc_cache WHERE category = ? AND key = ?",
		category, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		return false, nil
	}

	if err := json.Unmarshal(value, v); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s/%s: %w", category, key, err)
	}
	return true, nil
}

// Set stores v as JSON with the given time to live.
func (c *Cache) Set(category, key string, v any, ttl time.Duration) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO calc_cache (category, key, value, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, category, key, value, time.Now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes a single entry.
func (c *Cache) Delete(category, key string) error {
	_, err := c.db.Exec("DELETE FROM calc_cache WHERE category = ? AND key = ?", category, key)
	return err
}

// InvalidateCategory removes every entry in a category. Used after a price
// sync, when derived results go stale wholesale.
func (c *Cache) InvalidateCategory(category string) error {
	_, err := c.db.Exec("DELETE FROM calc_cache WHERE category = ?", category)
	return err
}

// PurgeExpired deletes expired rows and reports how many were removed.
func (c *Cache) PurgeExpired() (int64, error) {
	res, err := c.db.Exec("DELETE FROM calc_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		c.log.Debug().Int64("rows", n).Msg("Purged expired cache entries")
	}
	return n, nil
}
