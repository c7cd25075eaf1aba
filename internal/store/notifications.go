package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const notificationColumns = `id, recipient_type, recipient_id, type, title, message, is_read, created_at`

// InsertNotification stores one unread notification.
func InsertNotification(ctx context.Context, q sqlx.ExecerContext, n model.Notification) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO notifications (recipient_type, recipient_id, type, title, message, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		n.RecipientType, n.RecipientID, n.Type, n.Title, n.Message, n.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("creating notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting notification id: %w", err)
	}
	return id, nil
}

// GetNotification returns a notification by ID, or nil if it does not exist.
func GetNotification(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Notification, error) {
	var n model.Notification
	err := sqlx.GetContext(ctx, q, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return &n, nil
}

// ListNotifications returns a recipient's notifications, newest first.
func ListNotifications(ctx context.Context, q sqlx.QueryerContext, rtype model.RecipientType, rid int64) ([]model.Notification, error) {
	var list []model.Notification
	err := sqlx.SelectContext(ctx, q, &list,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_type = ? AND recipient_id = ?
		 ORDER BY created_at DESC, id DESC`, rtype, rid,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return list, nil
}

// CountUnreadNotifications returns how many of a recipient's notifications are unread.
func CountUnreadNotifications(ctx context.Context, q sqlx.QueryerContext, rtype model.RecipientType, rid int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		`SELECT COUNT(*) FROM notifications
		 WHERE recipient_type = ? AND recipient_id = ? AND is_read = 0`, rtype, rid,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead flags one notification as read.
func MarkNotificationRead(ctx context.Context, q sqlx.ExecerContext, id int64) error {
	result, err := q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return expectRow(result, "notification")
}

// MarkAllNotificationsRead flags every unread notification of a recipient
// and returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, q sqlx.ExecerContext, rtype model.RecipientType, rid int64) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1
		 WHERE recipient_type = ? AND recipient_id = ? AND is_read = 0`, rtype, rid,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking affected rows: %w", err)
	}
	return n, nil
}
