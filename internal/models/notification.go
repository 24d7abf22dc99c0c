package models

import "time"

// NotificationType classifies notifications shown to researchers.
type NotificationType string

const (
	NotificationTypeRipeAssigned NotificationType = "ripe_assigned"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID                  int64            `db:"id" json:"id"`
	UserID              int64            `db:"user_id" json:"user_id"`
	Type                NotificationType `db:"type" json:"type"`
	Title               string           `db:"title" json:"title"`
	Message             string           `db:"message" json:"message"`
	Link                string           `db:"link" json:"link"`
	IsRead              bool             `db:"is_read" json:"is_read"`
	RelatedSubmissionID *int64           `db:"related_submission_id" json:"related_submission_id,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains inbox listings.
type NotificationFilter struct {
	UserID     int64
	UnreadOnly bool
	Page       int
	PageSize   int
}
