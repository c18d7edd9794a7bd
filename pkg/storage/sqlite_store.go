package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS urls (
	url            TEXT PRIMARY KEY,
	crawled        INTEGER NOT NULL DEFAULT 0,
	date_crawled   INTEGER NOT NULL DEFAULT 0,
	crawl_duration REAL    NOT NULL DEFAULT 0,
	status         TEXT    NOT NULL DEFAULT 'pending',
	error_type     TEXT    NOT NULL DEFAULT '',
	inserted_at    INTEGER NOT NULL,
	last_attempt   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_urls_pending ON urls(crawled, inserted_at);

CREATE TABLE IF NOT EXISTS documents (
	url          TEXT PRIMARY KEY,
	title        TEXT,
	content_hash TEXT,
	size         INTEGER NOT NULL DEFAULT 0,
	crawled_at   INTEGER NOT NULL DEFAULT 0,
	record_json  TEXT NOT NULL
);
`

// SQLiteStore implements the Store interface on a single SQLite file
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *logrus.Entry
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database file at path, in WAL mode
func NewSQLiteStore(ctx context.Context, path string, logger *logrus.Entry) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory: %w", utils.ErrFilesystem, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", utils.ErrDatabase, err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", utils.ErrDatabase, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to create tables: %w", utils.ErrDatabase, err)
	}

	logger.Infof("SQLite crawl database ready at: %s", path)
	return &SQLiteStore{db: db, path: path, log: logger}, nil
}

// InsertURL implements the Store interface
func (s *SQLiteStore) InsertURL(ctx context.Context, rec models.URLRecord) (bool, error) {
	rec = prepareURLRecord(rec)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO urls (url, crawled, date_crawled, crawl_duration, status, error_type, inserted_at, last_attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		rec.URL, rec.Crawled, unixNanos(rec.DateCrawled), rec.CrawlDuration, string(rec.Status),
		rec.ErrorType, unixNanos(rec.InsertedAt), unixNanos(rec.LastAttempt))
	if err != nil {
		return false, fmt.Errorf("%w: inserting url '%s': %w", utils.ErrDatabase, rec.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", utils.ErrDatabase, err)
	}
	return n == 1, nil
}

// InsertURLs implements the Store interface, in a single transaction
func (s *SQLiteStore) InsertURLs(ctx context.Context, recs []models.URLRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", utils.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }() // No-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO urls (url, crawled, date_crawled, crawl_duration, status, error_type, inserted_at, last_attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %w", utils.ErrDatabase, err)
	}
	defer stmt.Close()

	added := 0
	for _, rec := range recs {
		rec = prepareURLRecord(rec)
		res, err := stmt.ExecContext(ctx, rec.URL, rec.Crawled, unixNanos(rec.DateCrawled), rec.CrawlDuration,
			string(rec.Status), rec.ErrorType, unixNanos(rec.InsertedAt), unixNanos(rec.LastAttempt))
		if err != nil {
			return 0, fmt.Errorf("%w: inserting url '%s': %w", utils.ErrDatabase, rec.URL, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", utils.ErrDatabase, err)
	}
	return added, nil
}

// UpdateURL implements the Store interface
func (s *SQLiteStore) UpdateURL(ctx context.Context, rec models.URLRecord) error {
	rec = prepareURLRecord(rec)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO urls (url, crawled, date_crawled, crawl_duration, status, error_type, inserted_at, last_attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			crawled = excluded.crawled,
			date_crawled = excluded.date_crawled,
			crawl_duration = excluded.crawl_duration,
			status = excluded.status,
			error_type = excluded.error_type,
			last_attempt = excluded.last_attempt`,
		rec.URL, rec.Crawled, unixNanos(rec.DateCrawled), rec.CrawlDuration, string(rec.Status),
		rec.ErrorType, unixNanos(rec.InsertedAt), unixNanos(rec.LastAttempt))
	if err != nil {
		return fmt.Errorf("%w: updating url '%s': %w", utils.ErrDatabase, rec.URL, err)
	}
	s.log.Debugf("Updated url record '%s' (status: %s)", rec.URL, rec.Status)
	return nil
}

const urlColumns = `url, crawled, date_crawled, crawl_duration, status, error_type, inserted_at, last_attempt`

// UncrawledURLs implements the Store interface
func (s *SQLiteStore) UncrawledURLs(ctx context.Context, limit int) ([]models.URLRecord, error) {
	if limit <= 0 {
		limit = -1 // No limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+urlColumns+` FROM urls WHERE crawled = 0 ORDER BY inserted_at, url LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying uncrawled urls: %w", utils.ErrDatabase, err)
	}
	defer rows.Close()

	var recs []models.URLRecord
	for rows.Next() {
		rec, err := scanURLRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDatabase, err)
	}
	return recs, nil
}

// EachURL implements the Store interface
func (s *SQLiteStore) EachURL(ctx context.Context, fn func(models.URLRecord) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+urlColumns+` FROM urls ORDER BY url`)
	if err != nil {
		return fmt.Errorf("%w: querying urls: %w", utils.ErrDatabase, err)
	}
	// Collect first: the single connection is held by rows until they are closed
	var recs []models.URLRecord
	for rows.Next() {
		rec, err := scanURLRecord(rows)
		if err != nil {
			rows.Close()
			return err
		}
		recs = append(recs, rec)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrDatabase, err)
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// URLCount implements the Store interface
func (s *SQLiteStore) URLCount(ctx context.Context) (int, error) {
	return s.count(ctx, "urls")
}

// InsertDocument implements the Store interface
func (s *SQLiteStore) InsertDocument(ctx context.Context, rec models.DocumentRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal DocumentRecord '%s': %w", utils.ErrParsing, rec.URL, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (url, title, content_hash, size, crawled_at, record_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.URL, rec.Title, rec.ContentHash, rec.Size, unixNanos(rec.CrawledAt), string(data))
	if isConstraintError(err) {
		return fmt.Errorf("document %s: %w", rec.URL, utils.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("%w: inserting document '%s': %w", utils.ErrDatabase, rec.URL, err)
	}
	return nil
}

// GetDocument implements the Store interface
func (s *SQLiteStore) GetDocument(ctx context.Context, url string) (models.DocumentRecord, error) {
	var rec models.DocumentRecord
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM documents WHERE url = ?`, url).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("document %s: %w", url, utils.ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("%w: loading document '%s': %w", utils.ErrDatabase, url, err)
	}
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return rec, fmt.Errorf("%w: failed to unmarshal DocumentRecord '%s': %w", utils.ErrParsing, url, err)
	}
	return rec, nil
}

// DocumentCount implements the Store interface
func (s *SQLiteStore) DocumentCount(ctx context.Context) (int, error) {
	return s.count(ctx, "documents")
}

// Size implements the Store interface: page count times page size
func (s *SQLiteStore) Size(ctx context.Context) (int64, error) {
	var pages, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pages); err != nil {
		return 0, fmt.Errorf("%w: page_count: %w", utils.ErrDatabase, err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("%w: page_size: %w", utils.ErrDatabase, err)
	}
	return pages * pageSize, nil
}

// Close implements the Store interface
func (s *SQLiteStore) Close() error {
	s.log.Info("Closing SQLite crawl DB...")
	return s.db.Close()
}

func (s *SQLiteStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting %s: %w", utils.ErrDatabase, table, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanURLRecord(row rowScanner) (models.URLRecord, error) {
	var (
		rec                                  models.URLRecord
		status                               string
		dateCrawled, insertedAt, lastAttempt int64
	)
	err := row.Scan(&rec.URL, &rec.Crawled, &dateCrawled, &rec.CrawlDuration, &status, &rec.ErrorType, &insertedAt, &lastAttempt)
	if err != nil {
		return rec, fmt.Errorf("%w: scanning url row: %w", utils.ErrDatabase, err)
	}
	rec.Status = models.PageStatus(status)
	rec.DateCrawled = fromUnixNanos(dateCrawled)
	rec.InsertedAt = fromUnixNanos(insertedAt)
	rec.LastAttempt = fromUnixNanos(lastAttempt)
	return rec, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// unixNanos stores the zero time as 0
func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
