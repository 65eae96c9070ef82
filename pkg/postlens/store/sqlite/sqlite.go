package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
	"github.com/cognicore/postlens/pkg/postlens/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite run ledger with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, internalerr.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	generated_at TEXT NOT NULL,
	input TEXT,
	output_dir TEXT,
	rejected INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_posts (
	run_id TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	post_id TEXT NOT NULL,
	posted_at TEXT NOT NULL,
	category TEXT NOT NULL,
	method TEXT,
	rate REAL,
	rate_err TEXT,
	PRIMARY KEY(run_id, ordinal),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_spans (
	run_id TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	text TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	trigger_word TEXT,
	PRIMARY KEY(run_id, ordinal, seq),
	FOREIGN KEY(run_id, ordinal) REFERENCES run_posts(run_id, ordinal) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_posts_category ON run_posts(run_id, category);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts the run, its posts and their spans in one transaction.
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if err := store.ValidateID(r.ID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, r.ID).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("run %s already recorded: %w", r.ID, internalerr.ErrInvalidInput)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, finished_at, generated_at, input, output_dir, rejected)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, r.ID, formatTime(r.StartedAt), formatTime(r.FinishedAt), formatTime(r.GeneratedAt), r.Input, r.OutputDir, r.Rejected)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	postStmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_posts (run_id, ordinal, post_id, posted_at, category, method, rate, rate_err)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer postStmt.Close()

	spanStmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_spans (run_id, ordinal, seq, kind, text, start_offset, end_offset, trigger_word)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer spanStmt.Close()

	for _, p := range r.Posts {
		var rate sql.NullFloat64
		if p.Rate != nil {
			rate = sql.NullFloat64{Float64: *p.Rate, Valid: true}
		}
		if _, err := postStmt.ExecContext(ctx, r.ID, p.Ordinal, p.PostID, formatTime(p.PostedAt), p.Category, p.Method, rate, p.RateErr); err != nil {
			return fmt.Errorf("insert post %s: %w", p.PostID, err)
		}
		for seq, sp := range p.Spans {
			if _, err := spanStmt.ExecContext(ctx, r.ID, p.Ordinal, seq, sp.Kind, sp.Text, sp.Start, sp.End, sp.Trigger); err != nil {
				return fmt.Errorf("insert span for post %s: %w", p.PostID, err)
			}
		}
	}

	return tx.Commit()
}

// GetRun loads a run with all its posts and spans.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	var (
		r                            store.Run
		started, finished, generated string
		input, outputDir             sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, started_at, finished_at, generated_at, input, output_dir, rejected
FROM runs
WHERE id = ?;
`, id).Scan(&r.ID, &started, &finished, &generated, &input, &outputDir, &r.Rejected)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, err
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	r.GeneratedAt = parseTime(generated)
	r.Input = input.String
	r.OutputDir = outputDir.String

	if r.Posts, err = s.loadPosts(ctx, id); err != nil {
		return store.Run{}, err
	}
	return r, nil
}

func (s *sqliteStore) loadPosts(ctx context.Context, runID string) ([]store.PostRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ordinal, post_id, posted_at, category, method, rate, rate_err
FROM run_posts
WHERE run_id = ?
ORDER BY ordinal;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []store.PostRecord
	index := make(map[int]int)
	for rows.Next() {
		var (
			p       store.PostRecord
			posted  string
			method  sql.NullString
			rate    sql.NullFloat64
			rateErr sql.NullString
		)
		if err := rows.Scan(&p.Ordinal, &p.PostID, &posted, &p.Category, &method, &rate, &rateErr); err != nil {
			return nil, err
		}
		p.PostedAt = parseTime(posted)
		p.Method = method.String
		p.RateErr = rateErr.String
		if rate.Valid {
			v := rate.Float64
			p.Rate = &v
		}
		index[p.Ordinal] = len(posts)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	spanRows, err := s.db.QueryContext(ctx, `
SELECT ordinal, kind, text, start_offset, end_offset, trigger_word
FROM run_spans
WHERE run_id = ?
ORDER BY ordinal, seq;
`, runID)
	if err != nil {
		return nil, err
	}
	defer spanRows.Close()

	for spanRows.Next() {
		var (
			ordinal int
			sp      store.SpanRecord
			trigger sql.NullString
		)
		if err := spanRows.Scan(&ordinal, &sp.Kind, &sp.Text, &sp.Start, &sp.End, &trigger); err != nil {
			return nil, err
		}
		sp.Trigger = trigger.String
		if i, ok := index[ordinal]; ok {
			posts[i].Spans = append(posts[i].Spans, sp)
		}
	}
	return posts, spanRows.Err()
}

// ListRuns returns run summaries, newest first. ULIDs sort by time.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.started_at, r.generated_at, r.input, r.rejected,
	COUNT(p.ordinal),
	COALESCE(SUM(CASE WHEN p.ordinal IS NOT NULL AND p.rate IS NULL THEN 1 ELSE 0 END), 0)
FROM runs r
LEFT JOIN run_posts p ON p.run_id = r.id
GROUP BY r.id
ORDER BY r.id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}

	var out []store.RunSummary
	for rows.Next() {
		var (
			sum                store.RunSummary
			started, generated string
			input              sql.NullString
		)
		if err := rows.Scan(&sum.ID, &started, &generated, &input, &sum.Rejected, &sum.Posts, &sum.Unscored); err != nil {
			rows.Close()
			return nil, err
		}
		sum.StartedAt = parseTime(started)
		sum.GeneratedAt = parseTime(generated)
		sum.Input = input.String
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Categories, err = s.categoryCounts(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *sqliteStore) categoryCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT category, COUNT(*) FROM run_posts WHERE run_id = ? GROUP BY category;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			cat string
			n   int
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
