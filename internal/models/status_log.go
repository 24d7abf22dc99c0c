package models

import "time"

// StatusLog is an append-only record of a submission status transition.
type StatusLog struct {
	ID           int64            `db:"id" json:"id"`
	SubmissionID int64            `db:"submission_id" json:"submission_id"`
	ChangedBy    int64            `db:"changed_by" json:"changed_by"`
	OldStatus    SubmissionStatus `db:"old_status" json:"old_status"`
	NewStatus    SubmissionStatus `db:"new_status" json:"new_status"`
	Remarks      *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}
