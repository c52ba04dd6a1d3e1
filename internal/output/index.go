package output

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// Page statuses recorded in the run index.
const (
	PageStatusOK     = "ok"
	PageStatusFailed = "failed"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	input_root  TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	processed   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pages (
	run_id        TEXT NOT NULL REFERENCES runs(id),
	relative_path TEXT NOT NULL,
	page_number   INTEGER NOT NULL,
	status        TEXT NOT NULL,
	output_file   TEXT,
	error         TEXT,
	recorded_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
`

// RunIndex records per-run and per-page outcomes in a SQLite database. It is
// bookkeeping only: callers treat index failures as non-fatal.
type RunIndex struct {
	db *sql.DB
}

// OpenRunIndex opens (creating if necessary) the run index at path. The
// special path ":memory:" keeps the index in memory.
func OpenRunIndex(path string) (*RunIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, domain.IndexError("open run index", err)
	}
	// SQLite handles one writer at a time; the pipeline is sequential anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, domain.IndexError("initialize run index schema", err)
	}
	return &RunIndex{db: db}, nil
}

// Close releases the underlying database handle.
func (ix *RunIndex) Close() error {
	return ix.db.Close()
}

// StartRun inserts a new run row and returns its ID.
func (ix *RunIndex) StartRun(ctx context.Context, inputRoot string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_root, started_at) VALUES (?, ?, ?)`,
		id.String(), inputRoot, time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, domain.IndexError("record run start", err)
	}
	return id, nil
}

// RecordPage inserts one page outcome. desc may be nil for scan-level
// failures; those are stored with an empty relative path and page zero.
func (ix *RunIndex) RecordPage(ctx context.Context, runID uuid.UUID, desc *domain.PageDescriptor, status, outputFile, errText string) error {
	relPath := ""
	page := 0
	if desc != nil {
		relPath = desc.RelativePath
		page = desc.PageNumber
	}
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO pages (run_id, relative_path, page_number, status, output_file, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID.String(), relPath, page, status, outputFile, errText, time.Now().UTC(),
	)
	if err != nil {
		return domain.IndexError("record page outcome", err)
	}
	return nil
}

// FinishRun stamps the run's completion time and final counts.
func (ix *RunIndex) FinishRun(ctx context.Context, runID uuid.UUID, processed, failed int) error {
	_, err := ix.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, processed = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), processed, failed, runID.String(),
	)
	if err != nil {
		return domain.IndexError("record run completion", err)
	}
	return nil
}

// RunSummary reports the stored counts for one run.
type RunSummary struct {
	ID         uuid.UUID
	InputRoot  string
	Processed  int
	Failed     int
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// Summary loads the stored summary of a run.
func (ix *RunIndex) Summary(ctx context.Context, runID uuid.UUID) (*RunSummary, error) {
	row := ix.db.QueryRowContext(ctx,
		`SELECT id, input_root, processed, failed, started_at, finished_at
		 FROM runs WHERE id = ?`,
		runID.String(),
	)
	s, err := scanRunSummary(row)
	if err != nil {
		return nil, domain.IndexError("load run summary", err)
	}
	return s, nil
}

// RecentRuns lists the most recently started runs, newest first.
func (ix *RunIndex) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT id, input_root, processed, failed, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, domain.IndexError("list runs", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		s, err := scanRunSummary(rows)
		if err != nil {
			return nil, domain.IndexError("list runs", err)
		}
		runs = append(runs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IndexError("list runs", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row rowScanner) (*RunSummary, error) {
	var s RunSummary
	var id string
	if err := row.Scan(&id, &s.InputRoot, &s.Processed, &s.Failed, &s.StartedAt, &s.FinishedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	s.ID = parsed
	return &s, nil
}
