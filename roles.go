package auth

// Roles in this system are peer groups gating different dashboards, not a
// hierarchy: a partenaire is not "more" than a donateur. Authorization is
// always an allowed-set membership check, see authorize.go.

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleBenevole, RoleDonateur, RolePartenaire, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsValidStatus checks if the status is one of the predefined valid statuses
func IsValidStatus(s UserStatus) bool {
	switch s {
	case UserStatusPending, UserStatusApproved, UserStatusSuspended, UserStatusBanned:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleBenevole,
		RoleDonateur,
		RolePartenaire,
		RoleAdmin,
	}
}

// GetAllStatuses returns all predefined account statuses
func GetAllStatuses() []UserStatus {
	return []UserStatus{
		UserStatusPending,
		UserStatusApproved,
		UserStatusSuspended,
		UserStatusBanned,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// ParseStatus safely parses a string into a UserStatus type
func ParseStatus(statusStr string) (UserStatus, bool) {
	status := UserStatus(statusStr)
	return status, IsValidStatus(status)
}

// RoleIn reports whether role is a member of the allowed set.
func RoleIn(role UserRole, allowed ...UserRole) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
