package workflow

import "github.com/iliyamo/tour-marketplace/internal/model"

// OrderEvent is a step in an order's lifecycle.
type OrderEvent string

const (
	OrderConfirm  OrderEvent = "confirm"
	OrderReject   OrderEvent = "reject"
	OrderCancel   OrderEvent = "cancel"
	OrderComplete OrderEvent = "complete"
)

// Terminal states have no outgoing edges.
var orderMachine = machine[model.OrderStatus, OrderEvent]{
	model.OrderPending: {
		OrderConfirm: {to: model.OrderConfirmed, roles: roles(model.RoleMerchant, model.RoleAdmin)},
		OrderReject:  {to: model.OrderRejected, roles: roles(model.RoleMerchant, model.RoleAdmin)},
	},
	model.OrderConfirmed: {
		OrderCancel:   {to: model.OrderCancelled, roles: roles(model.RoleCustomer, model.RoleAgent)},
		OrderComplete: {to: model.OrderCompleted, roles: roles(model.RoleSystem)},
	},
	model.OrderRejected:  {},
	model.OrderCancelled: {},
	model.OrderCompleted: {},
}

// Order returns the status an order moves to when role fires ev.
func Order(cur model.OrderStatus, ev OrderEvent, role model.Role) (model.OrderStatus, error) {
	return orderMachine.fire(cur, ev, role)
}

// ReleasesStock reports whether entering s hands the order's places back
// to the calendar.
func ReleasesStock(s model.OrderStatus) bool {
	return s == model.OrderRejected || s == model.OrderCancelled
}
