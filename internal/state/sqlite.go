package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

var errNotOpen = errors.New("database not opened")

// SQLiteStore stores baselines in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a store. A nil logger discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database at path, creating parent directories, and runs
// pending migrations. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create baseline directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s.db = db
	s.path = path
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	s.logger.Debug("opened baseline store", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record replaces the stored baseline with findings.
func (s *SQLiteStore) Record(ctx context.Context, rulesDir string, findings []Finding) (*Snapshot, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	snap := &Snapshot{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		RulesDir:  rulesDir,
		Findings:  len(findings),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"findings", "snapshots"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to clear baseline: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, rules_dir, findings) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt, snap.RulesDir, snap.Findings,
	); err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (snapshot_id, fingerprint, rule_id, path, line, message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_id, fingerprint) DO UPDATE SET occurrences = occurrences + 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx, snap.ID, f.Fingerprint, f.RuleID, f.Path, f.Line, f.Message); err != nil {
			return nil, fmt.Errorf("failed to record finding %s in %s: %w", f.RuleID, f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit baseline: %w", err)
	}
	s.logger.Debug("recorded baseline",
		slog.String("snapshot", snap.ID),
		slog.Int("findings", snap.Findings))
	return snap, nil
}

// Latest returns the current snapshot, or nil if none was recorded.
func (s *SQLiteStore) Latest(ctx context.Context) (*Snapshot, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	snap := &Snapshot{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, rules_dir, findings FROM snapshots ORDER BY created_at DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.CreatedAt, &snap.RulesDir, &snap.Findings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snap, nil
}

// Baseline loads the current snapshot's fingerprints. Without a recorded
// snapshot the baseline is empty.
func (s *SQLiteStore) Baseline(ctx context.Context) (*Baseline, error) {
	snap, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	b := &Baseline{Snapshot: snap, counts: make(map[string]int)}
	if snap == nil {
		return b, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, occurrences FROM findings WHERE snapshot_id = ?`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var fp string
		var n int
		if err := rows.Scan(&fp, &n); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		b.counts[fp] = n
	}
	return b, rows.Err()
}

// Findings lists the current snapshot's findings for one path, ordered by
// line. An empty path lists all findings.
func (s *SQLiteStore) Findings(ctx context.Context, path string) ([]Finding, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.fingerprint, f.rule_id, f.path, f.line, f.message
		FROM findings f JOIN snapshots s ON s.id = f.snapshot_id
		WHERE ? = '' OR f.path = ?
		ORDER BY f.path, f.line, f.rule_id`, path, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.Fingerprint, &f.RuleID, &f.Path, &f.Line, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
