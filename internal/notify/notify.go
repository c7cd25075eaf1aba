// Package notify writes in-system notifications and manages their read state.
//
// Fan-out methods take the caller's transaction so that a notification is
// committed together with the state change that caused it, or not at all.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Dispatcher creates and reads notifications.
type Dispatcher struct {
	DB  *sqlx.DB
	Now func() time.Time
}

// New returns a Dispatcher using the wall clock.
func New(db *sqlx.DB) *Dispatcher {
	return &Dispatcher{DB: db, Now: time.Now}
}

// Message is the rendered content of one domain event.
type Message struct {
	Type    model.NotificationType
	Title   string
	Message string
}

// NotifyAllAdmins writes one notification per administrator and returns how
// many were written.
func (d *Dispatcher) NotifyAllAdmins(ctx context.Context, tx sqlx.ExtContext, msg Message) (int, error) {
	admins, err := store.ListAdmins(ctx, tx)
	if err != nil {
		return 0, err
	}
	for _, a := range admins {
		if err := d.send(ctx, tx, model.RecipientAdmin, a.ID, msg); err != nil {
			return 0, err
		}
	}
	return len(admins), nil
}

// NotifyUser writes exactly one notification addressed to a member.
func (d *Dispatcher) NotifyUser(ctx context.Context, tx sqlx.ExtContext, memberID int64, msg Message) error {
	return d.send(ctx, tx, model.RecipientUser, memberID, msg)
}

// NotifyAllMembers writes one notification per member and returns how many
// were written.
func (d *Dispatcher) NotifyAllMembers(ctx context.Context, tx sqlx.ExtContext, msg Message) (int, error) {
	members, err := store.ListMembers(ctx, tx)
	if err != nil {
		return 0, err
	}
	for _, m := range members {
		if err := d.send(ctx, tx, model.RecipientUser, m.ID, msg); err != nil {
			return 0, err
		}
	}
	return len(members), nil
}

func (d *Dispatcher) send(ctx context.Context, tx sqlx.ExtContext, rtype model.RecipientType, rid int64, msg Message) error {
	_, err := store.InsertNotification(ctx, tx, model.Notification{
		RecipientType: rtype,
		RecipientID:   rid,
		Type:          msg.Type,
		Title:         msg.Title,
		Message:       msg.Message,
		CreatedAt:     d.Now(),
	})
	if err != nil {
		return fmt.Errorf("notifying %s %d: %w", rtype, rid, err)
	}
	return nil
}

// Notifications returns a recipient's notifications, newest first.
func (d *Dispatcher) Notifications(ctx context.Context, rtype model.RecipientType, rid int64) ([]model.Notification, error) {
	if !rtype.Valid() {
		return nil, fmt.Errorf("unknown recipient type %q", rtype)
	}
	return store.ListNotifications(ctx, d.DB, rtype, rid)
}

// UnreadCount returns how many of a recipient's notifications are unread.
func (d *Dispatcher) UnreadCount(ctx context.Context, rtype model.RecipientType, rid int64) (int, error) {
	if !rtype.Valid() {
		return 0, fmt.Errorf("unknown recipient type %q", rtype)
	}
	return store.CountUnreadNotifications(ctx, d.DB, rtype, rid)
}

// Notification returns a notification by ID.
func (d *Dispatcher) Notification(ctx context.Context, id int64) (*model.Notification, error) {
	n, err := store.GetNotification(ctx, d.DB, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("notification %d: %w", id, model.ErrNotFound)
	}
	return n, nil
}

// MarkAsRead flags one notification as read. Marking an already read
// notification is not an error.
func (d *Dispatcher) MarkAsRead(ctx context.Context, id int64) error {
	return store.MarkNotificationRead(ctx, d.DB, id)
}

// MarkAllAsRead flags every unread notification of a recipient as read.
func (d *Dispatcher) MarkAllAsRead(ctx context.Context, rtype model.RecipientType, rid int64) (int64, error) {
	if !rtype.Valid() {
		return 0, fmt.Errorf("unknown recipient type %q", rtype)
	}
	return store.MarkAllNotificationsRead(ctx, d.DB, rtype, rid)
}
