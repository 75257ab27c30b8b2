package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Caller is the authenticated identity passed explicitly to every service call.
type Caller struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

func (c Caller) IsStudent() bool {
	return c.Role == RoleStudent
}

// IsStaff reports whether the caller may author questions and manage exams.
func (c Caller) IsStaff() bool {
	return c.Role == RoleTeacher || c.Role == RoleAdmin
}

func ParseRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return UserRole(s), true
	}
	return "", false
}
