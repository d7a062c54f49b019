package workflow

import (
	"strings"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

// ProductEvent is a step in a listing's review cycle.
type ProductEvent string

const (
	ProductSubmit  ProductEvent = "submit"
	ProductApprove ProductEvent = "approve"
	ProductReject  ProductEvent = "reject"
	ProductEdit    ProductEvent = "edit"
)

// Any content edit of a reviewed listing sends it back to review.
var productMachine = machine[model.ProductStatus, ProductEvent]{
	model.ProductDraft: {
		ProductSubmit: {to: model.ProductPending, roles: roles(model.RoleMerchant)},
		ProductEdit:   {to: model.ProductDraft, roles: roles(model.RoleMerchant)},
	},
	model.ProductPending: {
		ProductApprove: {to: model.ProductApproved, roles: roles(model.RoleAdmin)},
		ProductReject:  {to: model.ProductRejected, roles: roles(model.RoleAdmin)},
		ProductEdit:    {to: model.ProductPending, roles: roles(model.RoleMerchant)},
	},
	model.ProductApproved: {
		ProductEdit: {to: model.ProductPending, roles: roles(model.RoleMerchant)},
	},
	model.ProductRejected: {
		ProductEdit: {to: model.ProductPending, roles: roles(model.RoleMerchant)},
	},
}

// Product returns the status a listing moves to when role fires ev.
// Rejections must go through RejectProduct so the reason is checked.
func Product(cur model.ProductStatus, ev ProductEvent, role model.Role) (model.ProductStatus, error) {
	return productMachine.fire(cur, ev, role)
}

// RejectProduct fires ProductReject and requires a non-blank reason.
func RejectProduct(cur model.ProductStatus, role model.Role, reason string) (model.ProductStatus, error) {
	if strings.TrimSpace(reason) == "" {
		return cur, model.NewValidationError("reason", "a rejection reason is required")
	}
	return productMachine.fire(cur, ProductReject, role)
}
