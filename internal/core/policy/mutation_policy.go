package policy

import "github.com/watchdeck/user-api/internal/core/domain"

// EditRequest carries the optional fields of a user edit. An empty Username
// keeps the current one; a nil or empty Role keeps the current role. A
// Username that is present is held to the same rules as at registration.
type EditRequest struct {
	Username string
	Role     *string
}

// EditResult is the effective field set to persist.
type EditResult struct {
	Username string
	Role     domain.Role
}

// ApplyEdit computes the fields an edit by a requester holding role
// requester would write onto current. It must only run after the role
// policy allowed OpEditUser.
func ApplyEdit(requester domain.Role, req EditRequest, current domain.User) (EditResult, error) {
	requested, hasRole := requestedRole(req)

	if requester == domain.RoleUser && hasRole && requested == string(domain.RoleAdmin) {
		return EditResult{}, domain.Forbidden("role escalation")
	}

	role := current.Role
	if hasRole {
		parsed, ok := domain.ParseRole(requested)
		if !ok {
			return EditResult{}, domain.InvalidInput("invalid role")
		}
		role = parsed
	}

	username := current.Username
	if req.Username != "" {
		normalized, err := domain.NormalizeUsername(req.Username)
		if err != nil {
			return EditResult{}, err
		}
		username = normalized
	}

	return EditResult{Username: username, Role: role}, nil
}

func requestedRole(req EditRequest) (string, bool) {
	if req.Role == nil || *req.Role == "" {
		return "", false
	}
	return *req.Role, true
}
