// Package storage keeps the heartbeat submission history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/woozymasta/minequery/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// one heartbeat round writes a handful of rows, a small pool is plenty
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// RecordSubmission stores the outcome of one directory submission.
func (r *Repository) RecordSubmission(ctx context.Context, s models.Submission) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (round, service, url, status, error, payload_hash, player_count, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Round, s.Service, s.URL, s.Status, s.Error,
		// SQLite integers are signed, keep the bit pattern
		int64(s.PayloadHash), //nolint:gosec
		s.PlayerCount, s.At.UTC(),
	)

	return err
}

// RecentSubmissions returns up to limit submissions, newest first.
func (r *Repository) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round, service, url, status, error, payload_hash, player_count, at
		FROM submissions
		ORDER BY at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var subs []models.Submission
	for rows.Next() {
		var (
			s    models.Submission
			hash int64
		)
		if err := rows.Scan(&s.Round, &s.Service, &s.URL, &s.Status, &s.Error, &hash, &s.PlayerCount, &s.At); err != nil {
			return nil, err
		}
		s.PayloadHash = uint64(hash) //nolint:gosec
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return subs, nil
}

// PruneSubmissions deletes submissions recorded before the given time.
func (r *Repository) PruneSubmissions(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
