package domain

import "time"

// Role defines user permission level
type Role string

const (
	RoleAdmin   Role = "admin"   // Manage users, databases, report schedules
	RoleAnalyst Role = "analyst" // Query databases, submit async queries, view reports
	RoleViewer  Role = "viewer"  // Read-only access to results
)

// User represents an account on this deployment
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// UserSummary provides a safe view of user data (no password hash)
type UserSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ToSummary converts a User to UserSummary
func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
	}
}

// IsAdmin checks if the user has admin privileges
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanManageDatabases checks if the user can register or edit database
// connections (including their OAuth2 client credentials)
func (u *User) CanManageDatabases() bool {
	return u.Role == RoleAdmin
}

// CanManageReports checks if the user can create/delete report schedules
func (u *User) CanManageReports() bool {
	return u.Role == RoleAdmin
}

// CanQuery checks if the user can submit queries
func (u *User) CanQuery() bool {
	return u.Active && (u.Role == RoleAdmin || u.Role == RoleAnalyst)
}
