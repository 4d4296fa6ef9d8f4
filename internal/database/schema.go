package database

// schemas maps database names to their embedded DDL. The history database is
// the system's only durable store: a flat table of daily adjusted closing
// prices keyed by (ticker, date). The calculations database is an ephemeral
// TTL cache that can be deleted at any time.
var schemas = map[string]string{
	"history": `
CREATE TABLE IF NOT EXISTS daily_prices (
	ticker         TEXT    NOT NULL,
	date           INTEGER NOT NULL, -- unix seconds at UTC midnight
	adjusted_close REAL    NOT NULL CHECK (adjusted_close > 0),
	PRIMARY KEY (ticker, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(date);

CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT    NOT NULL PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	tickers     INTEGER NOT NULL DEFAULT 0,
	points      INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);
`,
	"calculations": `
CREATE TABLE IF NOT EXISTS calc_cache (
	category   TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      BLOB    NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (category, key)
);

CREATE INDEX IF NOT EXISTS idx_calc_cache_expires ON calc_cache(expires_at);
`,
}
