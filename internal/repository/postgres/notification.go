package postgres

import (
	"context"
	"fmt"
	"time"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/repository"
)

type notificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.DatabaseCall("INSERT", "notifications", "userID", n.UserID, "type", n.Type)

	query := `INSERT INTO notifications (user_id, type, title, message, is_read, created_at)
	          VALUES ($1, $2, $3, $4, $5, now()) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, n.UserID, n.Type, n.Title, n.Message, n.IsRead).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("create notification: %w", mapError(err))
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID int64, limit, offset int64) ([]domain.Notification, int64, error) {
	var count int64
	countQuery := `SELECT count(*) FROM notifications WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", mapError(err))
	}

	query := `SELECT id, user_id, type, title, message, is_read, created_at
	          FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", mapError(err))
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var createdAt time.Time
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = createdAt.Format(time.RFC3339)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notifications: %w", err)
	}
	return notes, count, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", mapError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		logger.Debug("Notification not found or not owned by user", "notificationID", id, "userID", userID)
		return repository.ErrNotFound
	}
	return nil
}
