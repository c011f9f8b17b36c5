// Package audit persists the provenance trail of applied suggestions:
// which memory units a target segment's content came from, at what
// quality, applied by whom.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Entry struct {
	ID            int64     `json:"id"`
	PairID        string    `json:"pair_id"`
	SegmentID     string    `json:"segment_id"`
	SourceUnitRef string    `json:"source_unit_ref"`
	TargetUnitRef string    `json:"target_unit_ref"`
	Quality       int       `json:"quality"`
	AppliedBy     string    `json:"applied_by"`
	AppliedAt     time.Time `json:"applied_at"`
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Record(ctx context.Context, e Entry) (*Entry, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO applied_suggestions (pair_id, segment_id, source_unit_ref, target_unit_ref, quality, applied_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.PairID, e.SegmentID, e.SourceUnitRef, e.TargetUnitRef, e.Quality, e.AppliedBy)
	if err != nil {
		return nil, fmt.Errorf("insert applied suggestion: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, pair_id, segment_id, source_unit_ref, target_unit_ref, quality, applied_by, applied_at
		FROM applied_suggestions
		WHERE id = ?
	`, id)

	var e Entry
	var appliedAt time.Time
	if err := row.Scan(&e.ID, &e.PairID, &e.SegmentID, &e.SourceUnitRef, &e.TargetUnitRef, &e.Quality, &e.AppliedBy, &appliedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan applied suggestion: %w", err)
	}
	e.AppliedAt = appliedAt
	return &e, nil
}

func (r *Repo) ListByPair(ctx context.Context, pairID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, pair_id, segment_id, source_unit_ref, target_unit_ref, quality, applied_by, applied_at
		FROM applied_suggestions
		WHERE pair_id = ?
		ORDER BY applied_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, pairID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list applied suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PairID, &e.SegmentID, &e.SourceUnitRef, &e.TargetUnitRef, &e.Quality, &e.AppliedBy, &e.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan applied suggestion row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
