// Package authz decides whether an actor may perform an action on a
// target.  The guard is stateless: everything it needs is passed in, so the
// same decision is reached whatever transport or store sits around it.
package authz

import (
	"cloud.google.com/go/civil"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

// Action names an operation that needs a decision.
type Action string

const (
	ApproveUser   Action = "approve_user"
	RejectUser    Action = "reject_user"
	SuspendUser   Action = "suspend_user"
	ReinstateUser Action = "reinstate_user"

	CreateProduct  Action = "create_product"
	EditProduct    Action = "edit_product"
	SubmitProduct  Action = "submit_product"
	SetCalendar    Action = "set_calendar"
	DeleteProduct  Action = "delete_product"
	ApproveProduct Action = "approve_product"
	RejectProduct  Action = "reject_product"

	CreateOrder   Action = "create_order"
	ViewOrder     Action = "view_order"
	CancelOrder   Action = "cancel_order"
	ConfirmOrder  Action = "confirm_order"
	RejectOrder   Action = "reject_order"
	CompleteOrder Action = "complete_order"
)

// Actor is the caller as the guard sees it.
type Actor struct {
	ID     string
	Role   model.Role
	Status model.UserStatus
}

// ActorOf builds an Actor from a stored user.
func ActorOf(u model.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Status: u.Status}
}

// System is the actor used for engine-driven transitions.
var System = Actor{ID: "system", Role: model.RoleSystem, Status: model.UserApproved}

// Target describes the entity acted upon.  Only the fields relevant to the
// action need to be set.
type Target struct {
	ProductOwnerID       string     // owner of the product being managed
	OrderMerchantID      string     // merchant whose product the order is for
	BuyerID              string     // customer the order is (or will be) for
	BuyerManagingAgentID string     // agent managing that customer, if any
	BookingAgentID       string     // agent who placed the order, if any
	TravelDate           civil.Date // order travel date, for cancellations
	Today                civil.Date
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil when allowed and a *model.DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return model.Denied(d.Reason)
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

var adminActions = map[Action]bool{
	ApproveUser:    true,
	RejectUser:     true,
	SuspendUser:    true,
	ReinstateUser:  true,
	ApproveProduct: true,
	RejectProduct:  true,
	DeleteProduct:  true,
	ConfirmOrder:   true,
	RejectOrder:    true,
	ViewOrder:      true,
}

// Authorize applies the role rules in order.  Accounts that are not
// approved are refused everything.
func Authorize(actor Actor, action Action, target Target) Decision {
	if actor.Status != model.UserApproved {
		return deny("account is not approved")
	}
	switch actor.Role {
	case model.RoleAdmin:
		if adminActions[action] {
			return allow()
		}
		return deny("admins may not act as buyers or merchants")
	case model.RoleMerchant:
		return merchant(actor, action, target)
	case model.RoleAgent:
		return agent(actor, action, target)
	case model.RoleCustomer:
		return customer(actor, action, target)
	case model.RoleSystem:
		if action == CompleteOrder {
			return allow()
		}
		return deny("system actor only completes orders")
	}
	return deny("unknown role")
}

func merchant(actor Actor, action Action, t Target) Decision {
	switch action {
	case CreateProduct:
		return allow()
	case EditProduct, SubmitProduct, SetCalendar, DeleteProduct:
		if t.ProductOwnerID != "" && t.ProductOwnerID == actor.ID {
			return allow()
		}
		return deny("product belongs to another merchant")
	case ConfirmOrder, RejectOrder, ViewOrder:
		if t.OrderMerchantID != "" && t.OrderMerchantID == actor.ID {
			return allow()
		}
		return deny("order is for another merchant's product")
	}
	return deny("merchants may not " + string(action))
}

func agent(actor Actor, action Action, t Target) Decision {
	switch action {
	case CreateOrder:
		if t.BuyerManagingAgentID != "" && t.BuyerManagingAgentID == actor.ID {
			return allow()
		}
		return deny("customer is not managed by this agent")
	case ViewOrder:
		if actsFor(actor, t) {
			return allow()
		}
		return deny("order is not handled by this agent")
	case CancelOrder:
		if !actsFor(actor, t) {
			return deny("order is not handled by this agent")
		}
		return beforeTravel(t)
	}
	return deny("agents may not " + string(action))
}

func customer(actor Actor, action Action, t Target) Decision {
	switch action {
	case CreateOrder, ViewOrder:
		if t.BuyerID != "" && t.BuyerID == actor.ID {
			return allow()
		}
		return deny("customers act only for themselves")
	case CancelOrder:
		if t.BuyerID == "" || t.BuyerID != actor.ID {
			return deny("customers act only for themselves")
		}
		return beforeTravel(t)
	}
	return deny("customers may not " + string(action))
}

// actsFor reports whether an agent booked the order or manages its buyer.
func actsFor(actor Actor, t Target) bool {
	return (t.BookingAgentID != "" && t.BookingAgentID == actor.ID) ||
		(t.BuyerManagingAgentID != "" && t.BuyerManagingAgentID == actor.ID)
}

func beforeTravel(t Target) Decision {
	if t.Today.Before(t.TravelDate) {
		return allow()
	}
	return deny("travel date has been reached")
}
