package models

// OrgLevel names one of the organisational lookup tables.
type OrgLevel string

const (
	OrgLevelUnit    OrgLevel = "unit"
	OrgLevelCollege OrgLevel = "college"
	OrgLevelProgram OrgLevel = "program"
	OrgLevelProject OrgLevel = "project"
)

// OrgUnit is a row of units, colleges, programs or projects. ParentID links a program to its
// college and a project to its program.
type OrgUnit struct {
	ID       int64  `db:"id" json:"id"`
	ParentID *int64 `db:"parent_id" json:"parent_id,omitempty"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	Active   bool   `db:"active" json:"active"`
}
