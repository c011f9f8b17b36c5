package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Reviewer is an account allowed to review pairs. LangSource and
// LangTarget are the default language pair used when a registration
// request omits its own.
type Reviewer struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	LangSource   string
	LangTarget   string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) CreateReviewer(ctx context.Context, rv Reviewer) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviewers (id, username, email, password_hash, lang_source, lang_target)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rv.ID, rv.Username, rv.Email, rv.PasswordHash, rv.LangSource, rv.LangTarget)

	if err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*Reviewer, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, lang_source, lang_target, token_version, created_at
		FROM reviewers
		WHERE LOWER(email) = ?
	`, email)
	return scanReviewer(row, "get by email")
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*Reviewer, error) {
	username = strings.TrimSpace(username)
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, lang_source, lang_target, token_version, created_at
		FROM reviewers
		WHERE username = ?
	`, username)
	return scanReviewer(row, "get by username")
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Reviewer, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, lang_source, lang_target, token_version, created_at
		FROM reviewers
		WHERE id = ?
	`, id)
	return scanReviewer(row, "get by id")
}

func scanReviewer(row *sql.Row, op string) (*Reviewer, error) {
	var rv Reviewer
	if err := row.Scan(&rv.ID, &rv.Username, &rv.Email, &rv.PasswordHash, &rv.LangSource, &rv.LangTarget, &rv.TokenVersion, &rv.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &rv, nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token_version
		FROM reviewers
		WHERE id = ?
	`, id)

	var version int
	if err := row.Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdateLanguages(ctx context.Context, id, langSource, langTarget string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE reviewers
		SET lang_source = ?, lang_target = ?
		WHERE id = ?
	`, langSource, langTarget, id)
	if err != nil {
		return fmt.Errorf("update languages: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update languages rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update languages: reviewer not found")
	}
	return nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update password: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE reviewers
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update password: reviewer not found")
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update password: %w", err)
	}
	return nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE reviewers
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: reviewer not found")
	}
	return nil
}
