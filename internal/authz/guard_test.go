package authz

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

var (
	admin     = Actor{ID: "a1", Role: model.RoleAdmin, Status: model.UserApproved}
	merchantA = Actor{ID: "mA", Role: model.RoleMerchant, Status: model.UserApproved}
	merchantB = Actor{ID: "mB", Role: model.RoleMerchant, Status: model.UserApproved}
	agentX    = Actor{ID: "gX", Role: model.RoleAgent, Status: model.UserApproved}
	cust      = Actor{ID: "c1", Role: model.RoleCustomer, Status: model.UserApproved}

	today  = civil.Date{Year: 2025, Month: 8, Day: 20}
	travel = civil.Date{Year: 2025, Month: 9, Day: 1}
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name   string
		actor  Actor
		action Action
		target Target
		allow  bool
	}{
		{"admin approves product", admin, ApproveProduct, Target{}, true},
		{"admin suspends user", admin, SuspendUser, Target{}, true},
		{"admin cannot book", admin, CreateOrder, Target{BuyerID: "c1"}, false},
		{"admin cannot cancel for buyer", admin, CancelOrder, Target{BuyerID: "c1", TravelDate: travel, Today: today}, false},
		{"admin cannot set calendar", admin, SetCalendar, Target{ProductOwnerID: "mA"}, false},

		{"merchant creates product", merchantA, CreateProduct, Target{}, true},
		{"merchant sets own calendar", merchantA, SetCalendar, Target{ProductOwnerID: "mA"}, true},
		{"merchant edits own product", merchantA, EditProduct, Target{ProductOwnerID: "mA"}, true},
		{"merchant confirms own order", merchantA, ConfirmOrder, Target{OrderMerchantID: "mA"}, true},
		{"merchant cannot approve", merchantA, ApproveProduct, Target{ProductOwnerID: "mA"}, false},
		{"merchant cannot book", merchantA, CreateOrder, Target{BuyerID: "mA"}, false},
		{"merchant cannot reject other order", merchantA, RejectOrder, Target{OrderMerchantID: "mB"}, false},

		{"agent books for managed customer", agentX, CreateOrder, Target{BuyerID: "c1", BuyerManagingAgentID: "gX"}, true},
		{"agent cannot book for stranger", agentX, CreateOrder, Target{BuyerID: "c2", BuyerManagingAgentID: "gY"}, false},
		{"agent cancels booked order", agentX, CancelOrder, Target{BookingAgentID: "gX", TravelDate: travel, Today: today}, true},
		{"agent cannot cancel on travel day", agentX, CancelOrder, Target{BookingAgentID: "gX", TravelDate: travel, Today: travel}, false},
		{"agent never manages products", agentX, EditProduct, Target{ProductOwnerID: "gX"}, false},

		{"customer books for self", cust, CreateOrder, Target{BuyerID: "c1"}, true},
		{"customer cannot book for other", cust, CreateOrder, Target{BuyerID: "c2"}, false},
		{"customer cancels before travel", cust, CancelOrder, Target{BuyerID: "c1", TravelDate: travel, Today: today}, true},
		{"customer cannot cancel after travel", cust, CancelOrder, Target{BuyerID: "c1", TravelDate: travel, Today: civil.Date{Year: 2025, Month: 9, Day: 2}}, false},
		{"customer cannot cancel other", cust, CancelOrder, Target{BuyerID: "c2", TravelDate: travel, Today: today}, false},

		{"system completes orders", System, CompleteOrder, Target{}, true},
		{"system cannot confirm", System, ConfirmOrder, Target{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Authorize(tc.actor, tc.action, tc.target)
			assert.Equal(t, tc.allow, d.Allowed, d.Reason)
			if tc.allow {
				assert.NoError(t, d.Err())
			} else {
				require.ErrorIs(t, d.Err(), model.ErrDenied)
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestMerchantIsolation(t *testing.T) {
	owned := Target{ProductOwnerID: merchantB.ID}
	for _, action := range []Action{EditProduct, SubmitProduct, SetCalendar, DeleteProduct} {
		d := Authorize(merchantA, action, owned)
		assert.False(t, d.Allowed, "merchant A must not %s a product of merchant B", action)
		assert.True(t, Authorize(merchantB, action, owned).Allowed)
	}
}

func TestUnapprovedAccountsAreRefused(t *testing.T) {
	for _, st := range []model.UserStatus{model.UserPending, model.UserRejected, model.UserSuspended} {
		a := Actor{ID: "mA", Role: model.RoleMerchant, Status: st}
		d := Authorize(a, CreateProduct, Target{})
		assert.False(t, d.Allowed, st)
	}
	a := Actor{ID: "a1", Role: model.RoleAdmin, Status: model.UserSuspended}
	assert.False(t, Authorize(a, ApproveUser, Target{}).Allowed)
}

func TestEmptyOwnerNeverMatches(t *testing.T) {
	ghost := Actor{ID: "", Role: model.RoleMerchant, Status: model.UserApproved}
	assert.False(t, Authorize(ghost, SetCalendar, Target{}).Allowed)
}
