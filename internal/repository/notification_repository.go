package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ripe-api/internal/models"
)

// NotificationRepository stores in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a notification and fills in its id.
func (r *NotificationRepository) Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification payload is nil")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (user_id, type, title, message, link, is_read, related_submission_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &n.ID, query,
		n.UserID, n.Type, n.Title, n.Message, n.Link, n.IsRead, n.RelatedSubmissionID, n.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns one page of a user's notifications, newest first, with the total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	where := "WHERE user_id = $1"
	if filter.UnreadOnly {
		where += " AND is_read = FALSE"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications "+where, filter.UserID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `SELECT id, user_id, type, title, message, link, is_read, related_submission_id, created_at
FROM notifications ` + where + ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	items := make([]models.Notification, 0)
	offset := (filter.Page - 1) * filter.PageSize
	if err := r.db.SelectContext(ctx, &items, query, filter.UserID, filter.PageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead flags a notification owned by userID as read. It returns sql.ErrNoRows when the
// notification does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
