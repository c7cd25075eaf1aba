package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

var fixedNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := New(db.NewTestDB(t))
	d.Now = func() time.Time { return fixedNow }
	return d
}

func TestNotifyAllAdmins(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"ana", "bor", "cene"} {
		a, err := store.CreateAdmin(ctx, d.DB, name, "hash", name)
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	sent, err := d.NotifyAllAdmins(ctx, d.DB, Message{
		Type: model.NotifyLoanRequested, Title: "New loan request", Message: "m",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	for _, id := range ids {
		list, err := d.Notifications(ctx, model.RecipientAdmin, id)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, model.NotifyLoanRequested, list[0].Type)
		assert.False(t, list[0].IsRead)
		assert.True(t, fixedNow.Equal(list[0].CreatedAt))
	}
}

func TestNotifyAllAdminsWithNoAdmins(t *testing.T) {
	d := newDispatcher(t)

	sent, err := d.NotifyAllAdmins(context.Background(), d.DB, Message{Type: model.NotifyLoanRequested})
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestNotifyUserReadState(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	m, err := store.CreateMember(ctx, d.DB, model.Member{Name: "Maja", Phone: "040-111-222"})
	require.NoError(t, err)

	for range 2 {
		require.NoError(t, d.NotifyUser(ctx, d.DB, m.ID, Message{
			Type: model.NotifyLoanApproved, Title: "Loan approved", Message: "m",
		}))
	}

	n, err := d.UnreadCount(ctx, model.RecipientUser, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := d.Notifications(ctx, model.RecipientUser, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, d.MarkAsRead(ctx, list[0].ID))
	require.NoError(t, d.MarkAsRead(ctx, list[0].ID), "marking twice is fine")

	got, err := d.Notification(ctx, list[0].ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	n, _ = d.UnreadCount(ctx, model.RecipientUser, m.ID)
	assert.Equal(t, 1, n)

	changed, err := d.MarkAllAsRead(ctx, model.RecipientUser, m.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	n, _ = d.UnreadCount(ctx, model.RecipientUser, m.ID)
	assert.Zero(t, n)
}

func TestNotificationNotFound(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	_, err := d.Notification(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, d.MarkAsRead(ctx, 42), model.ErrNotFound)
}

func TestUnknownRecipientType(t *testing.T) {
	d := newDispatcher(t)

	_, err := d.Notifications(context.Background(), model.RecipientType("GUEST"), 1)
	assert.Error(t, err)
}

func TestPublishNotice(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	var members []int64
	for _, name := range []string{"Maja", "Nik"} {
		m, err := store.CreateMember(ctx, d.DB, model.Member{Name: name, Phone: "1"})
		require.NoError(t, err)
		members = append(members, m.ID)
	}

	notice, err := d.PublishNotice(ctx, "Closed on Monday", "The library is closed on Monday.", "admin")
	require.NoError(t, err)
	assert.Equal(t, "Closed on Monday", notice.Title)

	for _, id := range members {
		list, err := d.Notifications(ctx, model.RecipientUser, id)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, model.NotifyNotice, list[0].Type)
		assert.Contains(t, list[0].Message, "Closed on Monday")
	}

	_, err = d.PublishNotice(ctx, " ", "content", "admin")
	assert.Error(t, err)

	notices, err := store.ListNotices(ctx, d.DB)
	require.NoError(t, err)
	assert.Len(t, notices, 1)
}
