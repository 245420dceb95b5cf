package domain

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func IsValidRole(r string) bool {
	return r == string(RoleUser) || r == string(RoleModerator) || r == string(RoleAdmin)
}

// RoleRank: bigger => higher privilege; unknown roles rank 0.
func RoleRank(r string) int {
	switch r {
	case string(RoleUser):
		return 1
	case string(RoleModerator):
		return 2
	case string(RoleAdmin):
		return 3
	default:
		return 0
	}
}

// Actor is the authenticated caller as seen by application services.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) AtLeast(min Role) bool {
	return a.ID != "" && RoleRank(a.Role) >= RoleRank(string(min)) && RoleRank(a.Role) > 0
}
