// Package datastore persists artifact metadata records in PostgreSQL.
package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ErrNotInitialized is returned when a store is used without a connection.
var ErrNotInitialized = errors.New("database connection not initialized")

// ErrRecordNotFound is returned when no row has the requested id.
var ErrRecordNotFound = errors.New("image record not found")

const schemaDDL = `
CREATE TABLE IF NOT EXISTS image_records (
	id SERIAL PRIMARY KEY,
	prompt TEXT,
	image_filename TEXT,
	description TEXT,
	created_at TIMESTAMP DEFAULT (now() AT TIME ZONE 'utc')
)`

// InitDB opens and pings a PostgreSQL connection.
func InitDB(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// ArtifactRecordStore reads and writes image_records rows.
type ArtifactRecordStore struct {
	DB *sql.DB
}

// NewArtifactRecordStore wraps an open connection.
func NewArtifactRecordStore(db *sql.DB) *ArtifactRecordStore {
	return &ArtifactRecordStore{DB: db}
}

// EnsureSchema creates the image_records table when it is missing.
func (s *ArtifactRecordStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return ErrNotInitialized
	}
	if _, err := s.DB.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create image_records table: %w", err)
	}
	return nil
}

// InsertArtifactRecord writes one row inside a transaction and returns the
// generated id. The transaction is rolled back on any failure.
func (s *ArtifactRecordStore) InsertArtifactRecord(ctx context.Context, prompt, filename, description string) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, ErrNotInitialized
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO image_records (prompt, image_filename, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, query, prompt, filename, description).Scan(&id); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return 0, fmt.Errorf("failed to insert image record: %w (rollback: %v)", err, rbErr)
		}
		return 0, fmt.Errorf("failed to insert image record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit image record: %w", err)
	}
	return id, nil
}

// GetArtifactRecord retrieves a row by id.
func (s *ArtifactRecordStore) GetArtifactRecord(ctx context.Context, id int64) (*ArtifactRecord, error) {
	if s == nil || s.DB == nil {
		return nil, ErrNotInitialized
	}

	query := `
		SELECT id, prompt, image_filename, description, created_at
		FROM image_records
		WHERE id = $1
	`
	rec := &ArtifactRecord{}
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Prompt,
		&rec.ImageFilename,
		&rec.Description,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("failed to get image record: %w", err)
	}
	return rec, nil
}

// ListArtifactRecords returns the newest rows first.
func (s *ArtifactRecordStore) ListArtifactRecords(ctx context.Context, limit int) ([]ArtifactRecord, error) {
	if s == nil || s.DB == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, prompt, image_filename, description, created_at
		FROM image_records
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list image records: %w", err)
	}
	defer rows.Close()

	records := []ArtifactRecord{}
	for rows.Next() {
		var rec ArtifactRecord
		if err := rows.Scan(&rec.ID, &rec.Prompt, &rec.ImageFilename, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image records: %w", err)
	}
	return records, nil
}
