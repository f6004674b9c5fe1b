package domain

// RolePolicy decides the role of a newly registered account from the number
// of accounts that were registered before it.
type RolePolicy func(existingUserCount int64) Role

// AssignInitialRole grants Admin to the very first account and User to every
// account after it.
func AssignInitialRole(existingUserCount int64) Role {
	if existingUserCount <= 0 {
		return RoleAdmin
	}
	return RoleUser
}
