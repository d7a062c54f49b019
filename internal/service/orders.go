package service

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/authz"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/queue"
	"github.com/iliyamo/tour-marketplace/internal/repository"
	"github.com/iliyamo/tour-marketplace/internal/workflow"
)

// sweepBatch is how many due orders one sweep transaction completes.
const sweepBatch = 100

// ConfirmOrder moves a pending order to confirmed.
func (e *Engine) ConfirmOrder(ctx context.Context, actorID, orderID string) (model.Order, error) {
	return e.transitionOrder(ctx, actorID, orderID, workflow.OrderConfirm, authz.ConfirmOrder)
}

// RejectOrder moves a pending order to rejected and releases its places.
func (e *Engine) RejectOrder(ctx context.Context, actorID, orderID string) (model.Order, error) {
	return e.transitionOrder(ctx, actorID, orderID, workflow.OrderReject, authz.RejectOrder)
}

// CancelOrder moves a confirmed order to cancelled and releases its
// places.  Only possible before the travel date.
func (e *Engine) CancelOrder(ctx context.Context, actorID, orderID string) (model.Order, error) {
	return e.transitionOrder(ctx, actorID, orderID, workflow.OrderCancel, authz.CancelOrder)
}

func (e *Engine) transitionOrder(ctx context.Context, actorID, orderID string, ev workflow.OrderEvent, action authz.Action) (model.Order, error) {
	var (
		o        model.Order
		released bool
	)
	today := e.Today()
	err := e.inTx(ctx, "order "+string(ev), func(q repository.Queries) error {
		actor, err := e.actor(ctx, q, actorID)
		if err != nil {
			return err
		}
		if o, err = q.LockOrder(ctx, orderID); err != nil {
			return err
		}
		agentID, err := managingAgent(ctx, q, o.BuyerID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(actor, action, orderTarget(o, agentID, today)).Err(); err != nil {
			return err
		}
		next, err := workflow.Order(o.Status, ev, actor.Role)
		if err != nil {
			return err
		}
		o.Status = next
		released = false
		if workflow.ReleasesStock(next) {
			if released, err = release(ctx, q, &o); err != nil {
				return err
			}
		}
		return q.UpdateOrderStatus(ctx, &o)
	})
	if err != nil {
		return model.Order{}, err
	}

	e.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"event":    string(ev),
		"status":   string(o.Status),
		"actor_id": actorID,
	}).Info("order transitioned")
	evs := []queue.OrderEvent{queue.EventFor(queue.TypeForStatus(o.Status), o, e.now())}
	if released {
		e.logReleased(o)
		e.invalidate(ctx, o.ProductID)
		evs = append(evs, queue.EventFor(queue.StockReleased, o, e.now()))
	}
	e.publish(ctx, evs...)
	return o, nil
}

func orderTarget(o model.Order, buyerAgentID string, today civil.Date) authz.Target {
	return authz.Target{
		OrderMerchantID:      o.MerchantID,
		BuyerID:              o.BuyerID,
		BuyerManagingAgentID: buyerAgentID,
		BookingAgentID:       o.BookingAgentID,
		TravelDate:           o.TravelDate,
		Today:                today,
	}
}

// CompleteDueOrders completes every confirmed order whose travel date has
// passed and returns how many it completed.  Several sweepers may run at
// once; the row locks keep them from completing an order twice.
func (e *Engine) CompleteDueOrders(ctx context.Context) (int, error) {
	today := e.Today()
	total := 0
	for {
		var done []model.Order
		err := e.inTx(ctx, "complete due orders", func(q repository.Queries) error {
			done = done[:0]
			due, err := q.LockDueOrders(ctx, today, sweepBatch)
			if err != nil {
				return err
			}
			for _, o := range due {
				if err := authz.Authorize(authz.System, authz.CompleteOrder, orderTarget(o, "", today)).Err(); err != nil {
					return err
				}
				next, err := workflow.Order(o.Status, workflow.OrderComplete, authz.System.Role)
				if err != nil {
					return err
				}
				o.Status = next
				if err := q.UpdateOrderStatus(ctx, &o); err != nil {
					return err
				}
				done = append(done, o)
			}
			return nil
		})
		if err != nil {
			return total, err
		}
		total += len(done)
		evs := make([]queue.OrderEvent, 0, len(done))
		for _, o := range done {
			evs = append(evs, queue.EventFor(queue.OrderCompleted, o, e.now()))
		}
		e.publish(ctx, evs...)
		if len(done) < sweepBatch {
			break
		}
	}
	if total > 0 {
		e.log.WithFields(logrus.Fields{"completed": total, "before": today.String()}).Info("due orders completed")
	}
	return total, nil
}

// GetOrder returns an order the caller may see.
func (e *Engine) GetOrder(ctx context.Context, actorID, orderID string) (model.Order, error) {
	actor, err := e.actor(ctx, e.store, actorID)
	if err != nil {
		return model.Order{}, err
	}
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	agentID, err := managingAgent(ctx, e.store, o.BuyerID)
	if err != nil {
		return model.Order{}, err
	}
	if err := authz.Authorize(actor, authz.ViewOrder, orderTarget(o, agentID, e.Today())).Err(); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// ListOrders returns the orders the caller is a party to: bought by a
// customer, booked by an agent, or placed on a merchant's products.
// Admins see every order.  status filters when non-empty.
func (e *Engine) ListOrders(ctx context.Context, actorID string, status model.OrderStatus) ([]model.Order, error) {
	actor, err := e.actor(ctx, e.store, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Status != model.UserApproved {
		return nil, model.Denied("account is not approved")
	}
	f := repository.OrderFilter{Status: status}
	switch actor.Role {
	case model.RoleCustomer:
		f.BuyerID = actor.ID
	case model.RoleAgent:
		f.BookingAgentID = actor.ID
	case model.RoleMerchant:
		f.MerchantID = actor.ID
	case model.RoleAdmin:
	default:
		return nil, model.Denied("role may not list orders")
	}
	out, err := e.store.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Order{}
	}
	return out, nil
}
