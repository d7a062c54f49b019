// Package workflow holds the three approval state machines: users,
// products and orders.  Each machine is a pure function of the current
// state, the event and the role of whoever fires it.  Nothing here touches
// storage; callers persist the returned state.
package workflow

import (
	"fmt"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

// edge is one legal move: the state it leads to and the roles allowed to
// take it.
type edge[S ~string] struct {
	to    S
	roles []model.Role
}

// machine maps state -> event -> edge.
type machine[S ~string, E ~string] map[S]map[E]edge[S]

func (m machine[S, E]) fire(cur S, ev E, role model.Role) (S, error) {
	e, ok := m[cur][ev]
	if !ok {
		return cur, fmt.Errorf("%w: %q from %q", model.ErrInvalidTransition, ev, cur)
	}
	for _, r := range e.roles {
		if r == role {
			return e.to, nil
		}
	}
	return cur, model.Denied(fmt.Sprintf("role %q may not %s", role, ev))
}

func roles(r ...model.Role) []model.Role { return r }
