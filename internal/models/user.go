package models

// UserRole represents the roles issued by the authentication provider.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleFacilitator UserRole = "FACILITATOR"
	RoleResearcher  UserRole = "RESEARCHER"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
