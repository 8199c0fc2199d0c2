// Package policy holds the pure authorization rules for user and watch-list
// operations. Nothing here touches a store; callers evaluate the policy
// before loading the target so a denied caller never learns whether the
// target exists.
package policy

import "github.com/watchdeck/user-api/internal/core/domain"

// Operation names an action guarded by the role policy.
type Operation string

const (
	OpListUsers    Operation = "list_users"
	OpGetUser      Operation = "get_user"
	OpCreateUser   Operation = "create_user"
	OpEditUser     Operation = "edit_user"
	OpDeleteUser   Operation = "delete_user"
	OpAddWatchItem Operation = "add_watch_item"
	OpGetWatchList Operation = "get_watch_list"
)

const (
	reasonUnauthenticated = "authentication required"
	reasonNotPermitted    = "not enough permissions"
	reasonUnknownOp       = "unknown operation"
)

// Decision is the outcome of a role policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allowed decision and a Forbidden failure otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.Forbidden(d.Reason)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// rule decides a single operation for an authenticated claim.
type rule func(claim domain.Claim, targetID string) bool

func adminOnly(claim domain.Claim, _ string) bool {
	return claim.Role == domain.RoleAdmin
}

// adminOrSelf admits any ADMIN, and a USER only when acting on their own id.
func adminOrSelf(claim domain.Claim, targetID string) bool {
	switch claim.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return claim.UserID != "" && claim.UserID == targetID
	default:
		return false
	}
}

var rules = map[Operation]rule{
	OpListUsers:    adminOnly,
	OpGetUser:      adminOrSelf,
	OpEditUser:     adminOrSelf,
	OpDeleteUser:   adminOnly,
	OpAddWatchItem: adminOrSelf,
	OpGetWatchList: adminOrSelf,
}

// Decide evaluates whether claim may perform op on targetID. A nil claim is
// only accepted for OpCreateUser.
func Decide(claim *domain.Claim, op Operation, targetID string) Decision {
	if op == OpCreateUser {
		return allow()
	}

	r, ok := rules[op]
	if !ok {
		return deny(reasonUnknownOp)
	}
	if claim == nil {
		return deny(reasonUnauthenticated)
	}
	if !r(*claim, targetID) {
		return deny(reasonNotPermitted)
	}
	return allow()
}
