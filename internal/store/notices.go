package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const noticeColumns = `id, title, content, author, created_at, updated_at`

// CreateNotice stores a new notice.
func CreateNotice(ctx context.Context, q sqlx.ExtContext, title, content, author string, at time.Time) (*model.Notice, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO notices (title, content, author, created_at) VALUES (?, ?, ?, ?)`,
		title, content, author, at,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting notice id: %w", err)
	}

	return GetNotice(ctx, q, id)
}

// GetNotice returns a notice by ID, or nil.
func GetNotice(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Notice, error) {
	var n model.Notice
	err := sqlx.GetContext(ctx, q, &n, `SELECT `+noticeColumns+` FROM notices WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notice: %w", err)
	}
	return &n, nil
}

// ListNotices returns all notices, newest first.
func ListNotices(ctx context.Context, q sqlx.QueryerContext) ([]model.Notice, error) {
	var notices []model.Notice
	err := sqlx.SelectContext(ctx, q, &notices,
		`SELECT `+noticeColumns+` FROM notices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing notices: %w", err)
	}
	return notices, nil
}

// UpdateNotice edits a notice's text.
func UpdateNotice(ctx context.Context, q sqlx.ExecerContext, id int64, title, content string, at time.Time) error {
	result, err := q.ExecContext(ctx,
		`UPDATE notices SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		title, content, at, id,
	)
	if err != nil {
		return fmt.Errorf("updating notice: %w", err)
	}
	return expectRow(result, "notice")
}

// DeleteNotice removes a notice.
func DeleteNotice(ctx context.Context, q sqlx.ExecerContext, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting notice: %w", err)
	}
	return expectRow(result, "notice")
}
