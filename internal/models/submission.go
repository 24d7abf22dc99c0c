package models

import "time"

// SubmissionType enumerates the record kinds researchers can submit.
type SubmissionType string

const (
	SubmissionTypeResearch    SubmissionType = "research"
	SubmissionTypeInnovation  SubmissionType = "innovation"
	SubmissionTypePublication SubmissionType = "publication"
	SubmissionTypeExtension   SubmissionType = "extension"
)

var submissionTypeChars = map[SubmissionType]string{
	SubmissionTypeResearch:    "R",
	SubmissionTypeInnovation:  "I",
	SubmissionTypePublication: "P",
	SubmissionTypeExtension:   "E",
}

// Char returns the single-letter prefix used in RIPE codes.
func (t SubmissionType) Char() (string, bool) {
	c, ok := submissionTypeChars[t]
	return c, ok
}

// SubmissionStatus captures the workflow state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted             SubmissionStatus = "submitted"
	SubmissionStatusAcceptedByFacilitator SubmissionStatus = "accepted_by_facilitator"
)

// Submission is a researcher's record as seen by the allocation workflow.
type Submission struct {
	ID              int64            `db:"id" json:"id"`
	Title           string           `db:"title" json:"title"`
	Type            SubmissionType   `db:"type" json:"type"`
	SubmittedAt     time.Time        `db:"submitted_at" json:"submitted_at"`
	UnitID          int64            `db:"unit_id" json:"unit_id"`
	UnitCode        *string          `db:"unit_code" json:"unit_code,omitempty"`
	DepartmentID    int64            `db:"department_id" json:"department_id"`
	Status          SubmissionStatus `db:"status" json:"status"`
	RipeCode        *string          `db:"ripe_code" json:"ripe_code,omitempty"`
	ResearcherID    int64            `db:"researcher_id" json:"researcher_id"`
	ResearcherName  *string          `db:"researcher_name" json:"researcher_name,omitempty"`
	ResearcherEmail *string          `db:"researcher_email" json:"-"`
}

// AcceptSubmissionParams holds the columns written when a RIPE code is attached.
type AcceptSubmissionParams struct {
	SubmissionID int64
	RipeCode     string
	CodedBy      int64
	CodedAt      time.Time
	ProgramID    *int64
	ProjectID    *int64
}

// RegisterEntry is one row of the RIPE register export.
type RegisterEntry struct {
	RipeCode       string         `db:"ripe_code" json:"ripe_code"`
	Title          string         `db:"title" json:"title"`
	Type           SubmissionType `db:"type" json:"type"`
	ResearcherName string         `db:"researcher_name" json:"researcher_name"`
	CodedAt        time.Time      `db:"coded_at" json:"coded_at"`
}

// RegisterFilter narrows the register export.
type RegisterFilter struct {
	DepartmentID int64
	UnitID       int64
	Year         int
	Type         SubmissionType
}
