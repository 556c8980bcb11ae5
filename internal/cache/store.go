package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTTL is used when Open is given a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// Store is a SQLite-backed summary cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (and creates/migrates) the database at path.
func Open(ctx context.Context, path string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create database file: %w", err)
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	s := &Store{db: db, ttl: ttl, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// TTL returns how long a summary stays fresh.
func (s *Store) TTL() time.Duration { return s.ttl }

// migrations[i] upgrades the schema from user_version i to i+1.
var migrations = [][]string{
	// v1: summaries
	{
		`CREATE TABLE IF NOT EXISTS summaries (
  account_hash TEXT NOT NULL,
  message_id   TEXT NOT NULL,
  summary      TEXT NOT NULL,
  updated_at   INTEGER NOT NULL,
  PRIMARY KEY (account_hash, message_id)
);`,
		`CREATE INDEX IF NOT EXISTS summaries_updated_at ON summaries(updated_at);`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	var ver int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for ; ver < len(migrations); ver++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range migrations[ver] {
			if _, err = tx.ExecContext(ctx, stmt); err != nil {
				break
			}
		}
		if err == nil {
			_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d;", ver+1))
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v%d: %w", ver+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the applied migration count.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var ver int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)
	return ver, err
}

func accountKey(account string) string {
	sum := sha256.Sum256([]byte(account))
	return hex.EncodeToString(sum[:])
}

// SaveSummary upserts the summary for (account, messageID).
func (s *Store) SaveSummary(ctx context.Context, account, messageID, summary string) error {
	if strings.TrimSpace(account) == "" || strings.TrimSpace(messageID) == "" || strings.TrimSpace(summary) == "" {
		return fmt.Errorf("invalid summary inputs")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO summaries(account_hash, message_id, summary, updated_at)
VALUES(?,?,?,?)
ON CONFLICT(account_hash, message_id) DO UPDATE SET summary=excluded.summary, updated_at=excluded.updated_at;
`, accountKey(account), messageID, summary, s.now().Unix())
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// LoadSummary returns the cached summary when one exists and is younger
// than the TTL.
func (s *Store) LoadSummary(ctx context.Context, account, messageID string) (string, bool, error) {
	var out string
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT summary, updated_at FROM summaries WHERE account_hash=? AND message_id=?`,
		accountKey(account), messageID).Scan(&out, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load summary: %w", err)
	}
	if s.now().Sub(time.Unix(updated, 0)) > s.ttl {
		return "", false, nil
	}
	return out, true, nil
}

// DeleteSummary removes the summary for (account, messageID).
func (s *Store) DeleteSummary(ctx context.Context, account, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE account_hash=? AND message_id=?`,
		accountKey(account), messageID)
	if err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}

// Prune deletes summaries last written more than olderThan ago and returns
// how many were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune summaries: %w", err)
	}
	return res.RowsAffected()
}
