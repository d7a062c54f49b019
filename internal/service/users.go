package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/authz"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/repository"
	"github.com/iliyamo/tour-marketplace/internal/workflow"
)

// NewUser is a self-registration.  PasswordHash is already hashed.
type NewUser struct {
	Email           string
	PasswordHash    string
	Name            string
	Phone           string
	Role            model.Role
	ManagingAgentID string
}

// RegisterUser creates a pending account.  Admin accounts cannot be
// registered; customers may name the agent who manages them.
func (e *Engine) RegisterUser(ctx context.Context, in NewUser) (model.User, error) {
	if strings.TrimSpace(in.Email) == "" {
		return model.User{}, model.NewValidationError("email", "is required")
	}
	if in.PasswordHash == "" {
		return model.User{}, model.NewValidationError("password", "is required")
	}
	switch in.Role {
	case model.RoleMerchant, model.RoleAgent, model.RoleCustomer:
	default:
		return model.User{}, model.NewValidationError("role", "must be merchant, agent or customer")
	}
	if in.ManagingAgentID != "" {
		if in.Role != model.RoleCustomer {
			return model.User{}, model.NewValidationError("managing_agent_id", "only customers have a managing agent")
		}
		agent, err := e.store.GetUser(ctx, in.ManagingAgentID)
		if errors.Is(err, model.ErrNotFound) || (err == nil && agent.Role != model.RoleAgent) {
			return model.User{}, model.NewValidationError("managing_agent_id", "unknown agent")
		}
		if err != nil {
			return model.User{}, err
		}
	}

	u := model.User{
		ID:              newID(),
		Email:           in.Email,
		PasswordHash:    in.PasswordHash,
		Name:            in.Name,
		Phone:           in.Phone,
		Role:            in.Role,
		Status:          model.UserPending,
		ManagingAgentID: in.ManagingAgentID,
	}
	if err := e.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, model.NewValidationError("email", "already registered")
		}
		return model.User{}, err
	}
	e.log.WithFields(logrus.Fields{"user_id": u.ID, "role": string(u.Role)}).Info("user registered")
	return u, nil
}

// SeedAdmin makes sure an approved admin with the given email exists.  An
// existing account is returned unchanged.
func (e *Engine) SeedAdmin(ctx context.Context, email, passwordHash string) (model.User, error) {
	u, err := e.store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}
	u = model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "admin",
		Role:         model.RoleAdmin,
		Status:       model.UserApproved,
	}
	if err := e.store.CreateUser(ctx, &u); err != nil {
		return model.User{}, err
	}
	e.log.WithField("user_id", u.ID).Info("admin seeded")
	return u, nil
}

// GetUser returns a user by id.
func (e *Engine) GetUser(ctx context.Context, id string) (model.User, error) {
	return e.store.GetUser(ctx, id)
}

// UserByEmail returns a user by login email.
func (e *Engine) UserByEmail(ctx context.Context, email string) (model.User, error) {
	return e.store.GetUserByEmail(ctx, email)
}

// ApproveUser approves a pending account.
func (e *Engine) ApproveUser(ctx context.Context, actorID, userID string) (model.User, error) {
	return e.transitionUser(ctx, actorID, userID, workflow.UserApprove, authz.ApproveUser)
}

// RejectUser rejects a pending account.
func (e *Engine) RejectUser(ctx context.Context, actorID, userID string) (model.User, error) {
	return e.transitionUser(ctx, actorID, userID, workflow.UserReject, authz.RejectUser)
}

// SuspendUser suspends an approved account.
func (e *Engine) SuspendUser(ctx context.Context, actorID, userID string) (model.User, error) {
	return e.transitionUser(ctx, actorID, userID, workflow.UserSuspend, authz.SuspendUser)
}

// ReinstateUser lifts a suspension.
func (e *Engine) ReinstateUser(ctx context.Context, actorID, userID string) (model.User, error) {
	return e.transitionUser(ctx, actorID, userID, workflow.UserReinstate, authz.ReinstateUser)
}

func (e *Engine) transitionUser(ctx context.Context, actorID, userID string, ev workflow.UserEvent, action authz.Action) (model.User, error) {
	var u model.User
	err := e.inTx(ctx, "user "+string(ev), func(q repository.Queries) error {
		actor, err := e.actor(ctx, q, actorID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(actor, action, authz.Target{}).Err(); err != nil {
			return err
		}
		if u, err = q.LockUser(ctx, userID); err != nil {
			return err
		}
		next, err := workflow.User(u.Status, ev, actor.Role)
		if err != nil {
			return err
		}
		u.Status = next
		return q.UpdateUserStatus(ctx, u.ID, next)
	})
	if err != nil {
		return model.User{}, err
	}
	e.log.WithFields(logrus.Fields{"user_id": u.ID, "event": string(ev), "status": string(u.Status), "actor_id": actorID}).
		Info("user transitioned")
	return u, nil
}
