package domain

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// Actor is the authenticated identity behind a mutating call.
type Actor struct {
	ID    int32  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{Email: "system", Name: "System", Role: RoleSystem}
