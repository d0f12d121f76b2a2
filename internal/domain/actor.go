package domain

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Actor is the identity on whose behalf an operation runs.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// SystemActor stamps transitions made by the background sweeper.
var SystemActor = Actor{ID: "system", Name: "system", Role: RoleSuperAdmin}

func (a Actor) CanSubmit() bool {
	return a.ID != "" && a.Role.Valid()
}

func (a Actor) CanApproveReject() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

func (a Actor) CanManageResources() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// CanActOn reports whether the actor owns the reservation or administers it.
func (a Actor) CanActOn(r Reservation) bool {
	return a.ID != "" && (a.ID == r.RequesterID || a.CanApproveReject())
}
