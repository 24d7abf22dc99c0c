package dto

import "github.com/noah-isme/ripe-api/internal/models"

// AllocateRequest asks for a RIPE code on a submission. Zero ids mean the level was not selected.
type AllocateRequest struct {
	SubmissionID int64 `json:"submission_id" validate:"required,gt=0"`
	CollegeID    int64 `json:"college_id" validate:"gte=0"`
	ProgramID    int64 `json:"program_id" validate:"gte=0"`
	ProjectID    int64 `json:"project_id" validate:"gte=0"`
}

// AllocateResponse reports the outcome of an allocation.
type AllocateResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	ReferenceNumber *string `json:"reference_number"`
}

// PreviewRequest carries the facilitator's current selection.
type PreviewRequest struct {
	SubmissionID int64 `form:"submission_id" json:"submission_id" validate:"required,gt=0"`
	CollegeID    int64 `form:"college_id" json:"college_id" validate:"gte=0"`
	ProgramID    int64 `form:"program_id" json:"program_id" validate:"gte=0"`
	ProjectID    int64 `form:"project_id" json:"project_id" validate:"gte=0"`
}

// OrgOption is one entry of a selection list.
type OrgOption struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// PreviewResponse shows the code the next allocation would receive and the options for the next
// selection step.
type PreviewResponse struct {
	Success                bool        `json:"success"`
	Message                string      `json:"message"`
	Colleges               []OrgOption `json:"colleges"`
	Programs               []OrgOption `json:"programs"`
	Projects               []OrgOption `json:"projects"`
	NextStudyNumber        string      `json:"next_study_number"`
	PreviewReferenceNumber string      `json:"preview_reference_number"`
}

// NewFailedPreview returns the defaulted payload sent when a preview cannot be computed.
func NewFailedPreview(message string) *PreviewResponse {
	return &PreviewResponse{
		Message:  message,
		Colleges: []OrgOption{},
		Programs: []OrgOption{},
		Projects: []OrgOption{},
	}
}

// OptionsFromUnits converts lookup rows into selection options.
func OptionsFromUnits(units []models.OrgUnit) []OrgOption {
	options := make([]OrgOption, 0, len(units))
	for _, u := range units {
		options = append(options, OrgOption{ID: u.ID, Code: u.Code, Name: u.Name})
	}
	return options
}
