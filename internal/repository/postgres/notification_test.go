package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/repository"
	"rentfolio-backend/internal/repository/postgres"
)

func TestNotificationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewNotificationRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		note := &domain.Notification{
			UserID:  42,
			Type:    domain.NotificationTypePaymentReceived,
			Title:   "Rent payment received",
			Message: "Payment of 150000.00 received, receipt RCP-20260301-ADBEEF",
		}

		mock.ExpectQuery("INSERT INTO notifications").
			WithArgs(note.UserID, note.Type, note.Title, note.Message, note.IsRead).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		err := repo.Create(ctx, note)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), note.ID)
	})
}

func TestNotificationRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewNotificationRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM notifications").
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectQuery("SELECT (.+) FROM notifications").
			WithArgs(int64(42), int64(20), int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "is_read", "created_at"}).
				AddRow(1, 42, domain.NotificationTypeWithdrawalUpdated, "Withdrawal update", "Your withdrawal of 60000.00 is now APPROVED", false, time.Now()))

		notes, total, err := repo.List(ctx, 42, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, notes, 1)
		assert.Equal(t, domain.NotificationTypeWithdrawalUpdated, notes[0].Type)
	})
}

func TestNotificationRepository_MarkAsRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewNotificationRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE notifications SET is_read").
			WithArgs(int64(3), int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkAsRead(ctx, 3, 42))
	})

	t.Run("NotOwnedOrMissing", func(t *testing.T) {
		mock.ExpectExec("UPDATE notifications SET is_read").
			WithArgs(int64(3), int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkAsRead(ctx, 3, 99)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
