package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestNotificationReadState(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	var ids []int64
	for i := range 3 {
		id, err := InsertNotification(ctx, database, model.Notification{
			RecipientType: model.RecipientUser,
			RecipientID:   7,
			Type:          model.NotifyLoanApproved,
			Title:         "Loan approved",
			Message:       "msg",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := InsertNotification(ctx, database, model.Notification{
		RecipientType: model.RecipientAdmin, RecipientID: 7, Type: model.NotifyLoanRequested,
		Title: "t", Message: "m", CreatedAt: base,
	})
	require.NoError(t, err)

	list, err := ListNotifications(ctx, database, model.RecipientUser, 7)
	require.NoError(t, err)
	require.Len(t, list, 3, "admin 7 and user 7 are different recipients")
	assert.Equal(t, ids[2], list[0].ID, "newest first")
	assert.False(t, list[0].IsRead)

	n, err := CountUnreadNotifications(ctx, database, model.RecipientUser, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, MarkNotificationRead(ctx, database, ids[0]))
	got, err := GetNotification(ctx, database, ids[0])
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	changed, err := MarkAllNotificationsRead(ctx, database, model.RecipientUser, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	n, _ = CountUnreadNotifications(ctx, database, model.RecipientUser, 7)
	assert.Equal(t, 0, n)
	n, _ = CountUnreadNotifications(ctx, database, model.RecipientAdmin, 7)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, MarkNotificationRead(ctx, database, 9999), model.ErrNotFound)
}

func TestNotices(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	n, err := CreateNotice(ctx, database, "Closed Monday", "Holiday.", "root", at)
	require.NoError(t, err)
	assert.Nil(t, n.UpdatedAt)

	require.NoError(t, UpdateNotice(ctx, database, n.ID, "Closed Tuesday", "Holiday.", at.Add(time.Hour)))
	got, err := GetNotice(ctx, database, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Closed Tuesday", got.Title)
	require.NotNil(t, got.UpdatedAt)

	list, err := ListNotices(ctx, database)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, DeleteNotice(ctx, database, n.ID))
	assert.ErrorIs(t, DeleteNotice(ctx, database, n.ID), model.ErrNotFound)
}
