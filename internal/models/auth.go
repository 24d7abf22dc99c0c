package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the access token payload issued by the authentication provider.
type JWTClaims struct {
	UserID       int64    `json:"user_id"`
	Role         UserRole `json:"role"`
	Email        string   `json:"email,omitempty"`
	FullName     string   `json:"full_name,omitempty"`
	DepartmentID int64    `json:"department_id"`
	UnitID       int64    `json:"unit_id"`
	jwt.RegisteredClaims
}

// Actor is the request-scoped identity handed to every core operation.
type Actor struct {
	UserID       int64
	Role         UserRole
	DepartmentID int64
	UnitID       int64
}

// Actor projects the token claims onto the request context object.
func (c *JWTClaims) Actor() *Actor {
	if c == nil {
		return nil
	}
	return &Actor{
		UserID:       c.UserID,
		Role:         c.Role,
		DepartmentID: c.DepartmentID,
		UnitID:       c.UnitID,
	}
}

// InScope reports whether the actor's department and unit match the given scope.
func (a *Actor) InScope(departmentID, unitID int64) bool {
	return a != nil && a.DepartmentID == departmentID && a.UnitID == unitID
}
