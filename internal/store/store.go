package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistent set of news events shared by the
// ingest, reclassify, and query commands.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion)
	return nil
}

func (s *Store) Close() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		// Checkpoint failure is not fatal, the database still closes.
	}
	return s.db.Close()
}

// Upsert inserts the event or refreshes an existing row. Existing non-empty
// summary and vendor fields win over the incoming ones, so classifier output
// is never clobbered by a re-ingest of the same item.
func (s *Store) Upsert(e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO news_events (hash_id, published_at, title, source, link, summary,
		                         vendor_primary, vendor_matches, risk_type, risk_primary,
		                         risk_score, severity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash_id) DO UPDATE SET
			updated_at     = excluded.updated_at,
			summary        = CASE WHEN coalesce(news_events.summary,'')='' THEN excluded.summary ELSE news_events.summary END,
			vendor_primary = CASE WHEN coalesce(news_events.vendor_primary,'')='' THEN excluded.vendor_primary ELSE news_events.vendor_primary END,
			vendor_matches = CASE WHEN coalesce(news_events.vendor_matches,'')='' THEN excluded.vendor_matches ELSE news_events.vendor_matches END
	`,
		e.HashID, formatTime(e.PublishedAt), e.Title, e.Source, e.Link, e.Summary,
		nullable(e.VendorPrimary), nullable(e.VendorMatches), nullable(e.RiskType), nullable(e.RiskPrimary),
		nullableFloat(e.RiskScore), nullable(e.Severity), formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}

	return nil
}

// Untagged returns events that are still missing a risk type or severity,
// oldest first.
func (s *Store) Untagged(limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(selectColumns+`
		FROM news_events
		WHERE coalesce(risk_type,'')='' OR coalesce(severity,'')=''
		ORDER BY published_at ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get untagged events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// All returns every event, for the full reclassify passes.
func (s *Store) All() ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(selectColumns + ` FROM news_events ORDER BY published_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) UpdateTags(hashID, riskType, severity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE news_events SET risk_type = ?, severity = ?, updated_at = ? WHERE hash_id = ?
	`, nullable(riskType), nullable(severity), formatTime(time.Now().UTC()), hashID)
	if err != nil {
		return fmt.Errorf("update tags: %w", err)
	}

	return nil
}

func (s *Store) UpdateClassification(hashID, vendorMatches, riskType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE news_events SET vendor_matches = ?, risk_type = ?, updated_at = ? WHERE hash_id = ?
	`, nullable(vendorMatches), nullable(riskType), formatTime(time.Now().UTC()), hashID)
	if err != nil {
		return fmt.Errorf("update classification: %w", err)
	}

	return nil
}

func (s *Store) UpdatePrimary(hashID, vendorPrimary, riskPrimary string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE news_events SET vendor_primary = ?, risk_primary = ?, risk_score = ?, updated_at = ? WHERE hash_id = ?
	`, nullable(vendorPrimary), nullable(riskPrimary), nullableFloat(score), formatTime(time.Now().UTC()), hashID)
	if err != nil {
		return fmt.Errorf("update primary classification: %w", err)
	}

	return nil
}

// Latest returns the most recent events matching the filter, newest first.
func (s *Store) Latest(f Filter) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectColumns + ` FROM news_events`
	var where []string
	var args []interface{}

	if f.Risk != "" {
		where = append(where, "(instr(coalesce(risk_type,''), ?) > 0 OR risk_primary = ?)")
		args = append(args, f.Risk, f.Risk)
	}
	if f.Vendor != "" {
		where = append(where, "(instr(coalesce(vendor_matches,''), ?) > 0 OR vendor_primary = ?)")
		args = append(args, f.Vendor, f.Vendor)
	}
	if f.Query != "" {
		where = append(where, "(title LIKE ? OR summary LIKE ? OR source LIKE ?)")
		like := "%" + f.Query + "%"
		args = append(args, like, like, like)
	}
	if !f.Since.IsZero() {
		where = append(where, "published_at >= ?")
		args = append(args, formatTime(f.Since))
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " ORDER BY published_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Stats aggregates the quality counters reported by the quality command.
func (s *Store) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		RiskCounts:     make(map[string]int64),
		SeverityCounts: make(map[string]int64),
	}

	var lastPublished sql.NullString
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN coalesce(risk_type,'')='' THEN 1 ELSE 0 END), 0),
			MAX(published_at)
		FROM news_events
	`).Scan(&stats.TotalEvents, &stats.Untagged, &lastPublished)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	if lastPublished.Valid {
		stats.LastPublished, _ = parseTime(lastPublished.String)
	}

	if err := s.countInto(stats.RiskCounts, "risk_primary"); err != nil {
		return nil, err
	}
	if err := s.countInto(stats.SeverityCounts, "severity"); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT source, COUNT(*) AS n FROM news_events
		WHERE coalesce(source,'') != ''
		GROUP BY source ORDER BY n DESC LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("get top sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		stats.TopSources = append(stats.TopSources, sc)
	}

	return stats, rows.Err()
}

func (s *Store) countInto(dst map[string]int64, column string) error {
	rows, err := s.db.Query(`
		SELECT coalesce(` + column + `,''), COUNT(*) FROM news_events GROUP BY coalesce(` + column + `,'')
	`)
	if err != nil {
		return fmt.Errorf("count %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		if key == "" {
			key = "(none)"
		}
		dst[key] = n
	}

	return rows.Err()
}

const selectColumns = `
	SELECT hash_id, published_at, title, source, link, summary,
	       vendor_primary, vendor_matches, risk_type, risk_primary,
	       risk_score, severity, created_at, updated_at`

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event

	for rows.Next() {
		e := &Event{}
		var publishedAt, createdAt, updatedAt sql.NullString
		var source, link, summary sql.NullString
		var vendorPrimary, vendorMatches, riskType, riskPrimary, severity sql.NullString
		var riskScore sql.NullFloat64

		err := rows.Scan(
			&e.HashID, &publishedAt, &e.Title, &source, &link, &summary,
			&vendorPrimary, &vendorMatches, &riskType, &riskPrimary,
			&riskScore, &severity, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		e.Source = source.String
		e.Link = link.String
		e.Summary = summary.String
		e.VendorPrimary = vendorPrimary.String
		e.VendorMatches = vendorMatches.String
		e.RiskType = riskType.String
		e.RiskPrimary = riskPrimary.String
		e.Severity = severity.String
		if riskScore.Valid {
			e.RiskScore = riskScore.Float64
		}
		if publishedAt.Valid {
			e.PublishedAt, _ = parseTime(publishedAt.String)
		}
		if createdAt.Valid {
			e.CreatedAt, _ = parseTime(createdAt.String)
		}
		if updatedAt.Valid {
			e.UpdatedAt, _ = parseTime(updatedAt.String)
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
