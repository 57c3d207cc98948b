package store

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS news_events (
    hash_id        TEXT PRIMARY KEY,
    published_at   TEXT,
    title          TEXT NOT NULL,
    source         TEXT,
    link           TEXT,
    summary        TEXT,
    vendor_primary TEXT,
    vendor_matches TEXT,
    risk_type      TEXT,
    risk_primary   TEXT,
    risk_score     REAL,
    severity       TEXT,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_news_published ON news_events(published_at);
CREATE INDEX IF NOT EXISTS idx_news_vendor_primary ON news_events(vendor_primary);
CREATE INDEX IF NOT EXISTS idx_news_risk_primary ON news_events(risk_primary);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`
