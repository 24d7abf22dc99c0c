package dto

import "time"

// RegisterExportRequest filters the RIPE register export.
type RegisterExportRequest struct {
	Year   int    `form:"year" validate:"omitempty,gte=2000,lte=2100"`
	Type   string `form:"type" validate:"omitempty,oneof=research innovation publication extension"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// RegisterExportResponse points at a generated export.
type RegisterExportResponse struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	Rows        int       `json:"rows"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
