package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// CandidateRepo implements ports.CandidateRepository with pgx.
type CandidateRepo struct {
	db *DB
}

// NewCandidateRepo creates a new CandidateRepo.
func NewCandidateRepo(db *DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

// List returns every candidate in insertion order.
func (r *CandidateRepo) List(ctx context.Context) ([]domain.Point, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, lat, lon, created_at
		FROM candidates ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.Point
	for rows.Next() {
		var p domain.Point
		if err := rows.Scan(&p.ID, &p.Name, &p.Location.Lat, &p.Location.Lon, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Append inserts one candidate.
func (r *CandidateRepo) Append(ctx context.Context, p *domain.Point) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO candidates (id, name, lat, lon, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Name, p.Location.Lat, p.Location.Lon, p.CreatedAt)
	return err
}

func (r *CandidateRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM candidates`).Scan(&n)
	return n, err
}

// SeedIfEmpty inserts points in one batch when the table has no rows. It
// reports how many rows were written.
func (r *CandidateRepo) SeedIfEmpty(ctx context.Context, points []domain.Point) (int, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	if n > 0 || len(points) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(`
			INSERT INTO candidates (id, name, lat, lon, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Name, p.Location.Lat, p.Location.Lon, p.CreatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range points {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("batch exec: %w", err)
		}
	}
	return len(points), nil
}
