// Package domain defines the core entities of the LeaderForge BFA.
// These models are independent of the document store and represent the
// canonical data structures used throughout the service.
package domain

import "time"

// ============================================================
// Roles
// ============================================================

// Role is the position of a user inside a company.
type Role string

const (
	RoleTeamMember Role = "team_member"
	RoleSupervisor Role = "supervisor"
	RoleExecutive  Role = "executive"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTeamMember, RoleSupervisor, RoleExecutive:
		return true
	}
	return false
}

// ============================================================
// Company
// ============================================================

// Company is keyed by its unique name. Users reference it through
// the denormalized User.CompanyName field.
type Company struct {
	Name         string          `json:"name"`
	Size         int             `json:"size"`
	Code         string          `json:"code,omitempty"`
	ExecutiveUID string          `json:"executiveUid,omitempty"`
	Settings     CompanySettings `json:"settings"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// CompanySettings holds the feature flags chosen at company setup.
type CompanySettings struct {
	TrainingEnabled     bool `json:"trainingEnabled"`
	WorksheetsEnabled   bool `json:"worksheetsEnabled"`
	StandupNotesEnabled bool `json:"standupNotesEnabled"`
}

// ============================================================
// Users
// ============================================================

// User is a member of a company.
type User struct {
	ID               string                  `json:"id"`
	Email            string                  `json:"email,omitempty"`
	FirstName        string                  `json:"firstName"`
	LastName         string                  `json:"lastName"`
	Role             Role                    `json:"role"`
	CompanyName      string                  `json:"companyName"`
	SupervisorID     string                  `json:"supervisorId"`
	Permissions      []string                `json:"permissions,omitempty"`
	TrainingProgress TrainingProgressSummary `json:"trainingProgress"`
	CreatedAt        time.Time               `json:"createdAt,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// TrainingProgressSummary is the coarse counter kept on the user document.
type TrainingProgressSummary struct {
	CompletedVideos int       `json:"completedVideos"`
	TotalVideos     int       `json:"totalVideos"`
	Progress        float64   `json:"progress"`
	LastUpdated     time.Time `json:"lastUpdated,omitempty"`
}

// UserQuery selects users of one company. Empty fields do not filter.
// SupervisorID is a pointer so that "unassigned" (empty string) can be
// queried explicitly.
type UserQuery struct {
	CompanyName  string
	Roles        []Role
	SupervisorID *string
}

// UserUpdate carries the mutable user fields. Nil fields are left untouched.
type UserUpdate struct {
	Role         *Role
	SupervisorID *string
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Role == nil && u.SupervisorID == nil
}

// ============================================================
// Session
// ============================================================

// Session is the caller identity resolved from a verified token and
// the user's own document. It is passed explicitly into services.
type Session struct {
	UserID      string   `json:"userId"`
	CompanyName string   `json:"companyName"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}
