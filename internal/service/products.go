package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/authz"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/repository"
	"github.com/iliyamo/tour-marketplace/internal/workflow"
)

// ProductInput carries the merchant-editable fields of a listing.
type ProductInput struct {
	Title       model.LocalizedText
	Description model.LocalizedText
	BasePrice   decimal.Decimal
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Title.ZH) == "" && strings.TrimSpace(in.Title.EN) == "" {
		return model.NewValidationError("title", "at least one language is required")
	}
	if in.BasePrice.IsNegative() {
		return model.NewValidationError("base_price", "must not be negative")
	}
	return nil
}

// CreateProduct creates a draft listing owned by the calling merchant.
func (e *Engine) CreateProduct(ctx context.Context, actorID string, in ProductInput) (model.Product, error) {
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}
	actor, err := e.actor(ctx, e.store, actorID)
	if err != nil {
		return model.Product{}, err
	}
	if err := authz.Authorize(actor, authz.CreateProduct, authz.Target{}).Err(); err != nil {
		return model.Product{}, err
	}
	p := model.Product{
		ID:              newID(),
		OwnerMerchantID: actor.ID,
		Title:           in.Title,
		Description:     in.Description,
		BasePrice:       in.BasePrice,
		Status:          model.ProductDraft,
	}
	if err := e.store.CreateProduct(ctx, &p); err != nil {
		return model.Product{}, err
	}
	e.log.WithFields(logrus.Fields{"product_id": p.ID, "merchant_id": actor.ID}).Info("product created")
	return p, nil
}

// EditProduct replaces the listing's content.  Editing a reviewed listing
// sends it back to pending; existing orders keep their snapshot.
func (e *Engine) EditProduct(ctx context.Context, actorID, productID string, in ProductInput) (model.Product, error) {
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}
	return e.transitionProduct(ctx, actorID, productID, authz.EditProduct, func(p *model.Product, role model.Role) error {
		next, err := workflow.Product(p.Status, workflow.ProductEdit, role)
		if err != nil {
			return err
		}
		p.Title, p.Description, p.BasePrice = in.Title, in.Description, in.BasePrice
		p.Status = next
		p.RejectionReason = ""
		return nil
	})
}

// SubmitProduct sends a draft for review.
func (e *Engine) SubmitProduct(ctx context.Context, actorID, productID string) (model.Product, error) {
	return e.fireProduct(ctx, actorID, productID, workflow.ProductSubmit, authz.SubmitProduct)
}

// ApproveProduct publishes a pending listing.
func (e *Engine) ApproveProduct(ctx context.Context, actorID, productID string) (model.Product, error) {
	return e.fireProduct(ctx, actorID, productID, workflow.ProductApprove, authz.ApproveProduct)
}

// RejectProduct turns a pending listing down with a reason for the
// merchant.
func (e *Engine) RejectProduct(ctx context.Context, actorID, productID, reason string) (model.Product, error) {
	return e.transitionProduct(ctx, actorID, productID, authz.RejectProduct, func(p *model.Product, role model.Role) error {
		next, err := workflow.RejectProduct(p.Status, role, reason)
		if err != nil {
			return err
		}
		p.Status = next
		p.RejectionReason = strings.TrimSpace(reason)
		return nil
	})
}

func (e *Engine) fireProduct(ctx context.Context, actorID, productID string, ev workflow.ProductEvent, action authz.Action) (model.Product, error) {
	return e.transitionProduct(ctx, actorID, productID, action, func(p *model.Product, role model.Role) error {
		next, err := workflow.Product(p.Status, ev, role)
		if err != nil {
			return err
		}
		p.Status = next
		if next != model.ProductRejected {
			p.RejectionReason = ""
		}
		return nil
	})
}

func (e *Engine) transitionProduct(ctx context.Context, actorID, productID string, action authz.Action, apply func(p *model.Product, role model.Role) error) (model.Product, error) {
	var p model.Product
	err := e.inTx(ctx, "product "+string(action), func(q repository.Queries) error {
		actor, err := e.actor(ctx, q, actorID)
		if err != nil {
			return err
		}
		if p, err = q.LockProduct(ctx, productID); err != nil {
			return err
		}
		if err := authz.Authorize(actor, action, authz.Target{ProductOwnerID: p.OwnerMerchantID}).Err(); err != nil {
			return err
		}
		if err := apply(&p, actor.Role); err != nil {
			return err
		}
		return q.UpdateProduct(ctx, &p)
	})
	if err != nil {
		return model.Product{}, err
	}
	e.log.WithFields(logrus.Fields{"product_id": p.ID, "action": string(action), "status": string(p.Status), "actor_id": actorID}).
		Info("product updated")
	return p, nil
}

// DeleteProduct removes a listing and its calendar.  Listings with pending
// or confirmed orders cannot be deleted.
func (e *Engine) DeleteProduct(ctx context.Context, actorID, productID string) error {
	err := e.inTx(ctx, "delete product", func(q repository.Queries) error {
		actor, err := e.actor(ctx, q, actorID)
		if err != nil {
			return err
		}
		p, err := q.LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(actor, authz.DeleteProduct, authz.Target{ProductOwnerID: p.OwnerMerchantID}).Err(); err != nil {
			return err
		}
		n, err := q.CountOpenOrders(ctx, p.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: product has %d open orders", model.ErrInvalidTransition, n)
		}
		return q.DeleteProduct(ctx, p.ID)
	})
	if err != nil {
		return err
	}
	e.invalidate(ctx, productID)
	e.log.WithFields(logrus.Fields{"product_id": productID, "actor_id": actorID}).Info("product deleted")
	return nil
}

// ListProducts returns the calling merchant's listings.
func (e *Engine) ListProducts(ctx context.Context, actorID string) ([]model.Product, error) {
	actor, err := e.actor(ctx, e.store, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleMerchant || actor.Status != model.UserApproved {
		return nil, model.Denied("only approved merchants list their products")
	}
	out, err := e.store.ListProductsByOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Product{}
	}
	return out, nil
}

// GetProduct returns a listing by id.
func (e *Engine) GetProduct(ctx context.Context, productID string) (model.Product, error) {
	return e.store.GetProduct(ctx, productID)
}
