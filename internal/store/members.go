package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const memberColumns = `id, name, phone, COALESCE(username, '') AS username, password_hash, created_at`

var memberSearchColumns = map[string]string{
	model.MemberFieldName:  "fold(name)",
	model.MemberFieldPhone: "REPLACE(phone, '-', '')",
}

// CreateMember creates a new member. An empty username creates a member
// without login credentials.
func CreateMember(ctx context.Context, q sqlx.ExtContext, m model.Member) (*model.Member, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO members (name, phone, username, password_hash) VALUES (?, ?, NULLIF(?, ''), ?)`,
		m.Name, m.Phone, m.Username, m.PasswordHash,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("username %q is taken: %w", m.Username, model.ErrConflict)
		}
		return nil, fmt.Errorf("creating member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting member id: %w", err)
	}

	return GetMember(ctx, q, id)
}

// GetMember returns a member by ID, or nil if it does not exist.
func GetMember(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Member, error) {
	var m model.Member
	err := sqlx.GetContext(ctx, q, &m, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member: %w", err)
	}
	return &m, nil
}

// GetMemberByUsername returns a member by login name, or nil.
func GetMemberByUsername(ctx context.Context, q sqlx.QueryerContext, username string) (*model.Member, error) {
	var m model.Member
	err := sqlx.GetContext(ctx, q, &m, `SELECT `+memberColumns+` FROM members WHERE username = ?`, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member by username: %w", err)
	}
	return &m, nil
}

// ListMembers returns all members ordered by ID.
func ListMembers(ctx context.Context, q sqlx.QueryerContext) ([]model.Member, error) {
	var members []model.Member
	if err := sqlx.SelectContext(ctx, q, &members, `SELECT `+memberColumns+` FROM members ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

// SearchMembersByField returns members whose field contains keyword.
func SearchMembersByField(ctx context.Context, q sqlx.QueryerContext, field, keyword string) ([]model.Member, error) {
	column, ok := memberSearchColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown member search field %q", field)
	}

	var members []model.Member
	err := sqlx.SelectContext(ctx, q, &members,
		`SELECT `+memberColumns+` FROM members
		 WHERE instr(`+column+`, ?) > 0
		 ORDER BY id`, normalizeKeyword(field, keyword),
	)
	if err != nil {
		return nil, fmt.Errorf("searching members by %s: %w", field, err)
	}
	return members, nil
}

// UpdateMember updates a member's contact details.
func UpdateMember(ctx context.Context, q sqlx.ExecerContext, id int64, name, phone string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE members SET name = ?, phone = ? WHERE id = ?`,
		name, phone, id,
	)
	if err != nil {
		return fmt.Errorf("updating member: %w", err)
	}
	return expectRow(result, "member")
}

// UpdateMemberPassword updates a member's password hash.
func UpdateMemberPassword(ctx context.Context, q sqlx.ExecerContext, id int64, passwordHash string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE members SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating member password: %w", err)
	}
	return expectRow(result, "member")
}

// DeleteMember removes a member and their closed loan history. Members
// holding or requesting a book cannot be removed.
func DeleteMember(ctx context.Context, db *sqlx.DB, id int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	open, err := CountOpenLoansByMember(ctx, tx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return fmt.Errorf("member %d has %d open loans: %w", id, open, model.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE member_id = ?`, id); err != nil {
		return fmt.Errorf("deleting member loans: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	if err := expectRow(result, "member"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing member deletion: %w", err)
	}
	return nil
}
