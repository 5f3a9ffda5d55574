package metadata

// Actor represents the caller on whose behalf an operation runs, set by the
// hosting layer (e.g. from a verified JWT).
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole checks whether the actor has a specific role.
func (a *Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Env returns the actor as an expression environment value. A nil actor
// yields an empty identity so expressions never dereference nil.
func (a *Actor) Env() map[string]any {
	if a == nil {
		return map[string]any{"id": "", "name": "", "roles": []string{}}
	}
	roles := a.Roles
	if roles == nil {
		roles = []string{}
	}
	return map[string]any{"id": a.ID, "name": a.Name, "roles": roles}
}
