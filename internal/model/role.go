package model

// Role identifies what a user may do on the platform.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleSuperuser Role = "superuser"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleSuperuser:
		return true
	}
	return false
}
