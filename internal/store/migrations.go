package store

const schema = `
CREATE TABLE IF NOT EXISTS fetch_cache (
    source     TEXT NOT NULL,
    handle     TEXT NOT NULL,
    records    TEXT NOT NULL DEFAULT '[]',
    fetched_at DATETIME NOT NULL,
    PRIMARY KEY (source, handle)
);

CREATE INDEX IF NOT EXISTS idx_fetch_cache_fetched_at ON fetch_cache(fetched_at);
`
