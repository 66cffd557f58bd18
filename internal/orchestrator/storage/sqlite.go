package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteJobStore persists job records in a local SQLite database so jobs
// survive orchestrator restarts while a render fleet is still working.
type SQLiteJobStore struct {
	db *sql.DB
}

func NewSQLiteJobStore(path string) (*SQLiteJobStore, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteJobStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteJobStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteJobStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var applied int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename
// (e.g. "001_jobs.sql" -> 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	return 0
}

func (s *SQLiteJobStore) SaveJob(job *core.Job) error {
	return s.upsert(job)
}

func (s *SQLiteJobStore) UpdateJob(job *core.Job) error {
	return s.upsert(job)
}

func (s *SQLiteJobStore) upsert(job *core.Job) error {
	chunks, err := json.Marshal(job.Chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}

	var completedAt any
	if job.CompletedAt != nil {
		completedAt = job.CompletedAt.UTC()
	}

	_, err = s.db.Exec(`INSERT INTO jobs
		(id, frame_start, frame_end, chunks, instance_count, instance_type, asset_key, output_format, state, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			completed_at = excluded.completed_at`,
		job.ID, job.FrameStart, job.FrameEnd, string(chunks),
		job.InstanceCount, string(job.InstanceType), job.AssetKey,
		string(job.OutputFormat), string(job.State),
		job.SubmittedAt.UTC(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteJobStore) GetJobByID(id string) (*core.Job, error) {
	row := s.db.QueryRow(`SELECT id, frame_start, frame_end, chunks, instance_count, instance_type, asset_key, output_format, state, submitted_at, completed_at
		FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

func (s *SQLiteJobStore) GetJobs(filter core.JobFilter) ([]*core.Job, int, error) {
	query := `SELECT id, frame_start, frame_end, chunks, instance_count, instance_type, asset_key, output_format, state, submitted_at, completed_at FROM jobs`
	countQuery := `SELECT COUNT(*) FROM jobs`
	var args []any

	if filter.State != nil {
		query += ` WHERE state = ?`
		countQuery += ` WHERE state = ?`
		args = append(args, string(*filter.State))
	}
	query += ` ORDER BY submitted_at DESC`

	var total int
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*core.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*core.Job, error) {
	var (
		job          core.Job
		chunks       string
		instanceType string
		outputFormat string
		state        string
		submittedAt  time.Time
		completedAt  sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.FrameStart, &job.FrameEnd, &chunks,
		&job.InstanceCount, &instanceType, &job.AssetKey,
		&outputFormat, &state, &submittedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(chunks), &job.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshal chunks: %w", err)
	}
	job.InstanceType = core.InstanceType(instanceType)
	job.OutputFormat = core.OutputFormat(outputFormat)
	job.State = core.JobState(state)
	job.SubmittedAt = submittedAt
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
