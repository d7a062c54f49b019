package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tour-marketplace/internal/handler"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/repository/memstore"
	"github.com/iliyamo/tour-marketplace/internal/service"
	"github.com/iliyamo/tour-marketplace/internal/utils"
)

const secret = "router-test-secret"

var clock = time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)

type api struct {
	t   *testing.T
	e   *echo.Echo
	eng *service.Engine

	admin, merchant, agent, customer string // tokens
	agentID, customerID             string
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *api) expect(code int, rec *httptest.ResponseRecorder) {
	a.t.Helper()
	require.Equal(a.t, code, rec.Code, rec.Body.String())
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password})
	a.expect(http.StatusOK, rec)
	var out struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Access.Token
}

// signup registers an account, has the admin approve it and logs in.
func (a *api) signup(email string, role model.Role, agentID string) (id, token string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":             email,
		"password":          "correct-horse",
		"name":              string(role),
		"role":              string(role),
		"managing_agent_id": agentID,
	})
	a.expect(http.StatusCreated, rec)
	u := decode[model.User](a.t, rec)
	assert.Equal(a.t, model.UserPending, u.Status)

	a.expect(http.StatusOK, a.do(http.MethodPost, "/v1/admin/users/"+u.ID+"/approve", a.admin, nil))
	return u.ID, a.login(email, "correct-horse")
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	eng := service.New(memstore.New(), log, service.WithClock(func() time.Time { return clock }))

	hash, err := utils.HashPassword("admin-pass", bcrypt.MinCost)
	require.NoError(t, err)
	_, err = eng.SeedAdmin(context.Background(), "admin@example.com", hash)
	require.NoError(t, err)

	e := echo.New()
	h := handler.New(eng, handler.AuthConfig{JWTSecret: secret, AccessTTLMin: 5, BcryptCost: bcrypt.MinCost}, log)
	Register(e, h, Deps{JWTSecret: secret})

	a := &api{t: t, e: e, eng: eng}
	a.admin = a.login("admin@example.com", "admin-pass")
	_, a.merchant = a.signup("merchant@example.com", model.RoleMerchant, "")
	a.agentID, a.agent = a.signup("agent@example.com", model.RoleAgent, "")
	a.customerID, a.customer = a.signup("customer@example.com", model.RoleCustomer, a.agentID)
	return a
}

// listing creates, stocks, submits and approves a product.
func (a *api) listing(stock int) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/products", a.merchant, map[string]any{
		"title":      map[string]string{"en": "Great Wall day trip", "zh": "长城一日游"},
		"base_price": "120.00",
	})
	a.expect(http.StatusCreated, rec)
	p := decode[model.Product](a.t, rec)
	assert.Equal(a.t, model.ProductDraft, p.Status)

	a.expect(http.StatusOK, a.do(http.MethodPut, "/v1/products/"+p.ID+"/schedules", a.merchant, map[string]any{
		"schedules": []map[string]any{
			{"date": "2025-09-01", "price": "120.00", "stock": stock},
			{"date": "2025-09-02", "price": "150.00", "stock": stock},
		},
	}))
	a.expect(http.StatusOK, a.do(http.MethodPost, "/v1/products/"+p.ID+"/submit", a.merchant, nil))
	a.expect(http.StatusOK, a.do(http.MethodPost, "/v1/admin/products/"+p.ID+"/approve", a.admin, nil))
	return p.ID
}

func booking(productID, date string, adults int) map[string]any {
	return map[string]any{
		"product_id":  productID,
		"travel_date": date,
		"party_size":  map[string]int{"adults": adults},
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	a.expect(http.StatusOK, rec)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBookingLifecycle(t *testing.T) {
	a := newAPI(t)
	pid := a.listing(5)

	rec := a.do(http.MethodGet, "/v1/availability?product_id="+pid+"&date=2025-09-01&count=3", "", nil)
	a.expect(http.StatusOK, rec)
	assert.Equal(t, model.Availability{Result: model.AvailabilityOK, Available: 5}, decode[model.Availability](t, rec))

	rec = a.do(http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-09-01", 2))
	a.expect(http.StatusCreated, rec)
	o := decode[model.Order](t, rec)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, a.customerID, o.BuyerID)
	assert.True(t, decimal.NewFromInt(240).Equal(o.TotalPrice), o.TotalPrice.String())
	assert.Equal(t, civil.Date{Year: 2025, Month: time.September, Day: 1}, o.TravelDate)

	rec = a.do(http.MethodPost, "/v1/bookings", a.agent, map[string]any{
		"product_id":  pid,
		"travel_date": "2025-09-01",
		"buyer_id":    a.customerID,
		"party_size":  map[string]int{"adults": 1, "infants": 1},
	})
	a.expect(http.StatusCreated, rec)
	byAgent := decode[model.Order](t, rec)
	assert.Equal(t, a.agentID, byAgent.BookingAgentID)

	rec = a.do(http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-09-01", 2))
	a.expect(http.StatusConflict, rec)
	assert.JSONEq(t, `{"error":"insufficient_stock","requested":2,"available":1}`, rec.Body.String())

	a.expect(http.StatusOK, a.do(http.MethodPost, "/v1/orders/"+o.ID+"/confirm", a.merchant, nil))
	rec = a.do(http.MethodPost, "/v1/orders/"+o.ID+"/cancel", a.customer, nil)
	a.expect(http.StatusOK, rec)
	assert.Equal(t, model.OrderCancelled, decode[model.Order](t, rec).Status)

	rec = a.do(http.MethodGet, "/v1/products/"+pid+"/schedules?from=2025-09-01&to=2025-09-01", "", nil)
	a.expect(http.StatusOK, rec)
	var cal struct {
		Items []model.PriceSchedule `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cal))
	require.Len(t, cal.Items, 1)
	assert.Equal(t, 2, cal.Items[0].ReservedStock)

	rec = a.do(http.MethodGet, "/v1/my-orders", a.customer, nil)
	a.expect(http.StatusOK, rec)
	var mine struct {
		Items []model.Order `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine.Items, 2)

	rec = a.do(http.MethodGet, "/v1/merchant/orders?status=pending", a.merchant, nil)
	a.expect(http.StatusOK, rec)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine.Items, 1)
	assert.Equal(t, byAgent.ID, mine.Items[0].ID)
}

func TestCalendarEditBelowReserved(t *testing.T) {
	a := newAPI(t)
	pid := a.listing(4)
	a.expect(http.StatusCreated, a.do(http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-09-02", 3)))

	rec := a.do(http.MethodPut, "/v1/products/"+pid+"/schedules", a.merchant, map[string]any{
		"schedules": []map[string]any{{"date": "2025-09-02", "price": "150.00", "stock": 2}},
	})
	a.expect(http.StatusConflict, rec)
	assert.Contains(t, rec.Body.String(), "capacity_below_reserved")
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)
	pid := a.listing(2)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		code   int
		errStr string
	}{
		{"no token", http.MethodPost, "/v1/bookings", "", booking(pid, "2025-09-01", 1), http.StatusUnauthorized, ""},
		{"wrong role", http.MethodPost, "/v1/products", a.customer, map[string]any{"title": map[string]string{"en": "x"}}, http.StatusForbidden, "forbidden"},
		{"bad date", http.MethodPost, "/v1/bookings", a.customer, booking(pid, "01/09/2025", 1), http.StatusBadRequest, "validation_failed"},
		{"missing product", http.MethodPost, "/v1/bookings", a.customer, booking("", "2025-09-01", 1), http.StatusBadRequest, "product_id"},
		{"empty party", http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-09-01", 0), http.StatusBadRequest, "party_size"},
		{"no such date", http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-10-01", 1), http.StatusNotFound, "no_such_date"},
		{"unknown order", http.MethodGet, "/v1/orders/nope", a.customer, nil, http.StatusNotFound, "not_found"},
		{"agent books unmanaged", http.MethodPost, "/v1/bookings", a.agent, map[string]any{
			"product_id": pid, "travel_date": "2025-09-01", "buyer_id": "someone", "party_size": map[string]int{"adults": 1},
		}, http.StatusBadRequest, "buyer"},
		{"bad status filter", http.MethodGet, "/v1/my-orders?status=lost", a.customer, nil, http.StatusBadRequest, "status"},
		{"reject needs reason", http.MethodPost, "/v1/admin/products/" + pid + "/reject", a.admin, map[string]string{}, http.StatusBadRequest, "reason"},
		{"approve twice", http.MethodPost, "/v1/admin/products/" + pid + "/approve", a.admin, nil, http.StatusConflict, "invalid_transition"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tc.errStr)
		})
	}
}

func TestPendingProductHidden(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/products", a.merchant, map[string]any{
		"title":      map[string]string{"en": "Hutong walk"},
		"base_price": "30",
	})
	a.expect(http.StatusCreated, rec)
	p := decode[model.Product](t, rec)

	a.expect(http.StatusNotFound, a.do(http.MethodGet, "/v1/products/"+p.ID, "", nil))
	rec = a.do(http.MethodPost, "/v1/bookings", a.customer, booking(p.ID, "2025-09-01", 1))
	a.expect(http.StatusConflict, rec)
	assert.Contains(t, rec.Body.String(), "product_not_approved")

	rec = a.do(http.MethodGet, "/v1/merchant/products", a.merchant, nil)
	a.expect(http.StatusOK, rec)
	assert.Contains(t, rec.Body.String(), p.ID)
}

func TestSuspendedAccountIsDenied(t *testing.T) {
	a := newAPI(t)
	pid := a.listing(3)
	a.expect(http.StatusOK, a.do(http.MethodPost, "/v1/admin/users/"+a.customerID+"/suspend", a.admin, nil))

	// the token is still valid but the account is re-read on every action
	rec := a.do(http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-09-01", 1))
	a.expect(http.StatusForbidden, rec)

	rec = a.do(http.MethodGet, "/v1/me", a.customer, nil)
	a.expect(http.StatusOK, rec)
	assert.Equal(t, model.UserSuspended, decode[model.User](t, rec).Status)

	a.expect(http.StatusOK, a.do(http.MethodPost, "/v1/admin/users/"+a.customerID+"/reinstate", a.admin, nil))
	a.expect(http.StatusCreated, a.do(http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-09-01", 1)))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "merchant@example.com", "password": "nope"})
	a.expect(http.StatusUnauthorized, rec)
	rec = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "nope"})
	a.expect(http.StatusUnauthorized, rec)
}

func TestDeleteProduct(t *testing.T) {
	a := newAPI(t)
	pid := a.listing(3)
	rec := a.do(http.MethodPost, "/v1/bookings", a.customer, booking(pid, "2025-09-01", 1))
	a.expect(http.StatusCreated, rec)
	o := decode[model.Order](t, rec)

	a.expect(http.StatusConflict, a.do(http.MethodDelete, "/v1/admin/products/"+pid, a.admin, nil))
	a.expect(http.StatusOK, a.do(http.MethodPost, "/v1/orders/"+o.ID+"/reject", a.merchant, nil))
	a.expect(http.StatusNoContent, a.do(http.MethodDelete, "/v1/products/"+pid, a.merchant, nil))

	rec = a.do(http.MethodGet, "/v1/orders/"+o.ID, a.customer, nil)
	a.expect(http.StatusOK, rec)
	assert.Equal(t, model.OrderRejected, decode[model.Order](t, rec).Status)
}
