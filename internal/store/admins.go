package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const adminColumns = `id, username, password_hash, name, phone, created_at`

// CreateAdmin creates a new administrator.
func CreateAdmin(ctx context.Context, q sqlx.ExtContext, username, passwordHash, name string) (*model.Admin, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO admins (username, password_hash, name) VALUES (?, ?, ?)`,
		username, passwordHash, name,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("username %q is taken: %w", username, model.ErrConflict)
		}
		return nil, fmt.Errorf("creating admin: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting admin id: %w", err)
	}

	return GetAdmin(ctx, q, id)
}

// GetAdmin returns an admin by ID, or nil if it does not exist.
func GetAdmin(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Admin, error) {
	var a model.Admin
	err := sqlx.GetContext(ctx, q, &a, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting admin: %w", err)
	}
	return &a, nil
}

// GetAdminByUsername returns an admin by login name, or nil.
func GetAdminByUsername(ctx context.Context, q sqlx.QueryerContext, username string) (*model.Admin, error) {
	var a model.Admin
	err := sqlx.GetContext(ctx, q, &a, `SELECT `+adminColumns+` FROM admins WHERE username = ?`, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting admin by username: %w", err)
	}
	return &a, nil
}

// ListAdmins returns every administrator ordered by ID.
func ListAdmins(ctx context.Context, q sqlx.QueryerContext) ([]model.Admin, error) {
	var admins []model.Admin
	if err := sqlx.SelectContext(ctx, q, &admins, `SELECT `+adminColumns+` FROM admins ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	return admins, nil
}

// UpdateAdminPassword updates an admin's password hash.
func UpdateAdminPassword(ctx context.Context, q sqlx.ExecerContext, id int64, passwordHash string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE admins SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating admin password: %w", err)
	}
	return expectRow(result, "admin")
}
