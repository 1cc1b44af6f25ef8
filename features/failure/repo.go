package failure

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type Repository interface {
	Save(ctx context.Context, f *Failure) error
	List(ctx context.Context) ([]Failure, error)
	Get(ctx context.Context, id string) (*Failure, error)
	IncrementRetries(ctx context.Context, id string) error
	DeleteByFilename(ctx context.Context, filename string) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Save keeps one row per filename. A repeat failure refreshes the payload and
// error but keeps the id and retry count of the existing row.
func (r *PostgresRepo) Save(ctx context.Context, f *Failure) error {
	query := `INSERT INTO failed_submissions (source_filename, payload, error, retries) VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_filename) DO UPDATE SET payload = EXCLUDED.payload, error = EXCLUDED.error
		RETURNING id, retries, created_at`
	return r.db.QueryRowContext(ctx, query, f.SourceFilename, []byte(f.Payload), f.Error, f.Retries).Scan(&f.ID, &f.Retries, &f.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context) ([]Failure, error) {
	query := `SELECT id, source_filename, payload, error, retries, created_at FROM failed_submissions ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var payload []byte
		if err := rows.Scan(&f.ID, &f.SourceFilename, &payload, &f.Error, &f.Retries, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Payload = json.RawMessage(payload)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Failure, error) {
	f := &Failure{}
	var payload []byte
	query := `SELECT id, source_filename, payload, error, retries, created_at FROM failed_submissions WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.SourceFilename, &payload, &f.Error, &f.Retries, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.Payload = json.RawMessage(payload)
	return f, nil
}

func (r *PostgresRepo) IncrementRetries(ctx context.Context, id string) error {
	query := `UPDATE failed_submissions SET retries = retries + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) DeleteByFilename(ctx context.Context, filename string) error {
	query := `DELETE FROM failed_submissions WHERE source_filename = $1`
	_, err := r.db.ExecContext(ctx, query, filename)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM failed_submissions`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
