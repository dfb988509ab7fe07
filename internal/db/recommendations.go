package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecommendationRepository handles recommendation database operations.
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

const recommendationColumns = `id, session_id, start_date, period_duration, cycle_day,
	phase, mood, playlist_url, playlist_name, fallback, created_at`

// Save inserts a recommendation. A zero ID is replaced with a new UUID.
func (r *RecommendationRepository) Save(ctx context.Context, rec *Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
		INSERT INTO recommendations (` + recommendationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.StartDate,
		rec.PeriodDuration,
		rec.CycleDay,
		rec.Phase,
		rec.Mood,
		rec.PlaylistURL,
		rec.PlaylistName,
		rec.Fallback,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting recommendation: %w", err)
	}
	return nil
}

// Get retrieves a recommendation by ID.
func (r *RecommendationRepository) Get(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = $1`

	rec, err := scanRecommendation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recommendation: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit recommendations for a session, newest first.
func (r *RecommendationRepository) Recent(ctx context.Context, sessionID string, limit int) ([]Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendations: %w", err)
	}
	return recs, nil
}

// DeleteForSession removes a session's history.
func (r *RecommendationRepository) DeleteForSession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM recommendations WHERE session_id = $1`
	if _, err := r.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("deleting recommendations: %w", err)
	}
	return nil
}

func scanRecommendation(row pgx.Row) (*Recommendation, error) {
	var rec Recommendation
	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.StartDate,
		&rec.PeriodDuration,
		&rec.CycleDay,
		&rec.Phase,
		&rec.Mood,
		&rec.PlaylistURL,
		&rec.PlaylistName,
		&rec.Fallback,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
