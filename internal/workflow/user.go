package workflow

import "github.com/iliyamo/tour-marketplace/internal/model"

// UserEvent is an admin decision about an account.
type UserEvent string

const (
	UserApprove   UserEvent = "approve"
	UserReject    UserEvent = "reject"
	UserSuspend   UserEvent = "suspend"
	UserReinstate UserEvent = "reinstate"
)

var userMachine = machine[model.UserStatus, UserEvent]{
	model.UserPending: {
		UserApprove: {to: model.UserApproved, roles: roles(model.RoleAdmin)},
		UserReject:  {to: model.UserRejected, roles: roles(model.RoleAdmin)},
	},
	model.UserApproved: {
		UserSuspend: {to: model.UserSuspended, roles: roles(model.RoleAdmin)},
	},
	model.UserSuspended: {
		UserReinstate: {to: model.UserApproved, roles: roles(model.RoleAdmin)},
	},
	model.UserRejected: {},
}

// User returns the status an account moves to when role fires ev.
func User(cur model.UserStatus, ev UserEvent, role model.Role) (model.UserStatus, error) {
	return userMachine.fire(cur, ev, role)
}
