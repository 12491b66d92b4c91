package auth

// Authorize checks a resolved identity against an allowed set of roles.
// Roles are flat peer groups, there is no hierarchy: an empty allowed set
// admits any authenticated identity.
func Authorize(identity Identity, allowed ...UserRole) error {
	if identity == nil {
		return ErrNotAuthenticated
	}

	if len(allowed) == 0 {
		return nil
	}

	for _, role := range allowed {
		if identity.Role() == role {
			return nil
		}
	}

	return ErrInsufficientPermissions.Clone().WithMetadata(map[string]any{
		"user_role":      identity.Role(),
		"required_roles": allowed,
	})
}

// AuthorizeOwnership admits the owner of a resource, or an admin.
func AuthorizeOwnership(identity Identity, ownerID string) error {
	if identity == nil {
		return ErrNotAuthenticated
	}

	if identity.Role() == RoleAdmin {
		return nil
	}

	if ownerID != "" && identity.ID() == ownerID {
		return nil
	}

	return ErrNotOwner.Clone().WithMetadata(map[string]any{
		"user_id":  identity.ID(),
		"owner_id": ownerID,
	})
}
