package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const loginColumns = `id, user_type, user_id, username, ip_address, login_time`

// RecordLogin appends a successful sign-in to the login history.
func RecordLogin(ctx context.Context, q sqlx.ExecerContext, rec model.LoginRecord) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO login_history (user_type, user_id, username, ip_address, login_time)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.UserType, rec.UserID, rec.Username, rec.IPAddress, rec.LoginTime,
	)
	if err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	return nil
}

// ListLogins returns the whole login history, newest first.
func ListLogins(ctx context.Context, q sqlx.QueryerContext) ([]model.LoginRecord, error) {
	var list []model.LoginRecord
	err := sqlx.SelectContext(ctx, q, &list,
		`SELECT `+loginColumns+` FROM login_history ORDER BY login_time DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing logins: %w", err)
	}
	return list, nil
}

// ListLoginsByUsername returns one account's sign-ins, newest first.
func ListLoginsByUsername(ctx context.Context, q sqlx.QueryerContext, username string) ([]model.LoginRecord, error) {
	var list []model.LoginRecord
	err := sqlx.SelectContext(ctx, q, &list,
		`SELECT `+loginColumns+` FROM login_history
		 WHERE username = ?
		 ORDER BY login_time DESC, id DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("listing logins for %s: %w", username, err)
	}
	return list, nil
}
