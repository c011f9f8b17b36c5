// Package memstore is the storage and HTTP surface of the standalone
// translation-memory service. It stores translation units in SQLite and
// answers exact-match lookups keyed by segment text and language pair.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"segmenthub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) CreateUnit(ctx context.Context, u models.MemoryUnit) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO memory_units (id, lang_source, lang_target, source_stripped, source_html, target_stripped, target_html, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.LangSource, u.LangTarget, u.SourceStripped, u.SourceHTML, u.TargetStripped, u.TargetHTML, u.Quality)

	if err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

func (r *Repo) GetUnit(ctx context.Context, id string) (*models.MemoryUnit, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, lang_source, lang_target, source_stripped, source_html, target_stripped, target_html, quality, created_at
		FROM memory_units
		WHERE id = ?
	`, id)

	var u models.MemoryUnit
	err := row.Scan(&u.ID, &u.LangSource, &u.LangTarget, &u.SourceStripped, &u.SourceHTML, &u.TargetStripped, &u.TargetHTML, &u.Quality, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &u, nil
}

// LookupQuery keys a translation lookup. StrippedText is compared
// case-insensitively after whitespace trimming; HTMLText, when present,
// is an exact-match fallback key for segments whose stripped form is
// ambiguous.
type LookupQuery struct {
	StrippedText string
	HTMLText     string
	LangSource   string
	LangTarget   string
}

// Lookup returns matching units best-first (highest quality, then most
// recent). An empty result is a plain empty slice; the HTTP layer turns
// it into the no-content answer.
func (r *Repo) Lookup(ctx context.Context, q LookupQuery) ([]models.MemoryUnit, error) {
	stripped := strings.ToLower(strings.TrimSpace(q.StrippedText))

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, lang_source, lang_target, source_stripped, source_html, target_stripped, target_html, quality, created_at
		FROM memory_units
		WHERE lang_source = ? AND lang_target = ?
		  AND (LOWER(TRIM(source_stripped)) = ? OR (? != '' AND source_html = ?))
		ORDER BY quality DESC, created_at DESC
	`, q.LangSource, q.LangTarget, stripped, q.HTMLText, q.HTMLText)
	if err != nil {
		return nil, fmt.Errorf("lookup units: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryUnit
	for rows.Next() {
		var u models.MemoryUnit
		if err := rows.Scan(&u.ID, &u.LangSource, &u.LangTarget, &u.SourceStripped, &u.SourceHTML, &u.TargetStripped, &u.TargetHTML, &u.Quality, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}

func (r *Repo) ListUnits(ctx context.Context, langSource, langTarget string, limit, offset int) ([]models.MemoryUnit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, lang_source, lang_target, source_stripped, source_html, target_stripped, target_html, quality, created_at
		FROM memory_units
		WHERE (? = '' OR lang_source = ?) AND (? = '' OR lang_target = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, langSource, langSource, langTarget, langTarget, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryUnit
	for rows.Next() {
		var u models.MemoryUnit
		if err := rows.Scan(&u.ID, &u.LangSource, &u.LangTarget, &u.SourceStripped, &u.SourceHTML, &u.TargetStripped, &u.TargetHTML, &u.Quality, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}

func (r *Repo) DeleteUnit(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM memory_units WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete unit rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
