// Package journal records print jobs in a sqlite database.
package journal

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned for an unknown job ID.
var ErrNotFound = errors.New("job not found")

// Status is the state of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusPrinted Status = "printed"
	StatusFailed  Status = "failed"
)

// Job is one journal row.
type Job struct {
	ID         uuid.UUID
	Client     string
	Size       int
	Width      int
	Lines      int
	Media      string
	Status     Status
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Result is the outcome of a job. A nil Err marks the job printed.
type Result struct {
	Width int
	Lines int
	Media string
	Err   error
}

// Journal stores jobs. It is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal database at path. Use ":memory:" for a
// journal that lives as long as the process.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Start records a new pending job.
func (j *Journal) Start(client string, size int) (Job, error) {
	job := Job{
		ID:        uuid.New(),
		Client:    client,
		Size:      size,
		Status:    StatusPending,
		CreatedAt: j.now(),
	}

	_, err := j.db.Exec(`
    INSERT INTO jobs (id, client, size, status, created_at)
    VALUES (?, ?, ?, ?, ?)`,
		job.ID.String(), job.Client, job.Size, string(job.Status), job.CreatedAt.UnixMilli())
	if err != nil {
		return Job{}, fmt.Errorf("failed to record job: %w", err)
	}
	return job, nil
}

// Finish stores the outcome of a job.
func (j *Journal) Finish(id uuid.UUID, res Result) error {
	status, msg := StatusPrinted, ""
	if res.Err != nil {
		status, msg = StatusFailed, res.Err.Error()
	}

	r, err := j.db.Exec(`
    UPDATE jobs
    SET width = ?, lines = ?, media = ?, status = ?, error = ?, finished_at = ?
    WHERE id = ?`,
		res.Width, res.Lines, res.Media, string(status), msg, j.now().UnixMilli(), id.String())
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", id, err)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns one job.
func (j *Journal) Get(id uuid.UUID) (Job, error) {
	row := j.db.QueryRow(`
    SELECT id, client, size, width, lines, media, status, error, created_at, finished_at
    FROM jobs WHERE id = ?`, id.String())

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job, err
}

// Recent returns up to n jobs, newest first.
func (j *Journal) Recent(n int) ([]Job, error) {
	rows, err := j.db.Query(`
    SELECT id, client, size, width, lines, media, status, error, created_at, finished_at
    FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (Job, error) {
	var (
		job               Job
		id, status        string
		created, finished int64
	)
	err := s.Scan(&id, &job.Client, &job.Size, &job.Width, &job.Lines, &job.Media,
		&status, &job.Error, &created, &finished)
	if err != nil {
		return Job{}, err
	}

	if job.ID, err = uuid.Parse(id); err != nil {
		return Job{}, fmt.Errorf("corrupt job id %q: %w", id, err)
	}
	job.Status = Status(status)
	job.CreatedAt = time.UnixMilli(created)
	if finished != 0 {
		job.FinishedAt = time.UnixMilli(finished)
	}
	return job, nil
}
