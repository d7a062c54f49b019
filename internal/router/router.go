package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-marketplace/internal/handler"
	"github.com/iliyamo/tour-marketplace/internal/middleware"
	"github.com/iliyamo/tour-marketplace/internal/model"
)

// Deps is what the routes need besides the handlers.
type Deps struct {
	JWTSecret string
	// Limiter guards the booking endpoint.  Nil means no rate limiting.
	Limiter echo.MiddlewareFunc
}

// Register wires every route of the API onto e.
func Register(e *echo.Echo, h *handler.Handler, d Deps) {
	RegisterRoutes(e)
	RegisterPublic(e, h)
	RegisterAuth(e, h)

	auth := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	auth.GET("/me", h.Me)
	RegisterBooking(auth, h, d.Limiter)
	RegisterMerchant(auth, h)
	RegisterAdmin(auth, h)
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  Only
// approved listings are exposed.
func RegisterPublic(e *echo.Echo, h *handler.Handler) {
	e.GET("/v1/products/:id", h.GetProduct)
	e.GET("/v1/products/:id/schedules", h.ListSchedules)
	e.GET("/v1/availability", h.Availability)
}

// RegisterAuth registers the session endpoints under /v1/auth.
func RegisterAuth(e *echo.Echo, h *handler.Handler) {
	g := e.Group("/v1/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
}

// RegisterBooking registers order placement and the order endpoints shared
// by every role.  The engine decides which order a caller may see or touch.
func RegisterBooking(g *echo.Group, h *handler.Handler, limiter echo.MiddlewareFunc) {
	book := []echo.MiddlewareFunc{middleware.RequireRole(model.RoleCustomer, model.RoleAgent)}
	if limiter != nil {
		book = append(book, limiter)
	}
	g.POST("/bookings", h.Book, book...)

	g.GET("/orders/:id", h.GetOrder)
	g.GET("/my-orders", h.ListOrders, middleware.RequireRole(model.RoleCustomer, model.RoleAgent))
	g.POST("/orders/:id/cancel", h.CancelOrder, middleware.RequireRole(model.RoleCustomer, model.RoleAgent))

	review := middleware.RequireRole(model.RoleMerchant, model.RoleAdmin)
	g.POST("/orders/:id/confirm", h.ConfirmOrder, review)
	g.POST("/orders/:id/reject", h.RejectOrder, review)
}

// RegisterMerchant registers listing and calendar management.
func RegisterMerchant(g *echo.Group, h *handler.Handler) {
	m := middleware.RequireRole(model.RoleMerchant)
	g.POST("/products", h.CreateProduct, m)
	g.PUT("/products/:id", h.EditProduct, m)
	g.POST("/products/:id/submit", h.SubmitProduct, m)
	g.DELETE("/products/:id", h.DeleteProduct, m)
	g.PUT("/products/:id/schedules", h.SetSchedules, m)
	g.GET("/merchant/products", h.MyProducts, m)
	g.GET("/merchant/orders", h.ListOrders, m)
}

// RegisterAdmin registers account and listing review.
func RegisterAdmin(g *echo.Group, h *handler.Handler) {
	a := g.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	a.POST("/users/:id/approve", h.ApproveUser)
	a.POST("/users/:id/reject", h.RejectUser)
	a.POST("/users/:id/suspend", h.SuspendUser)
	a.POST("/users/:id/reinstate", h.ReinstateUser)
	a.POST("/products/:id/approve", h.ApproveProduct)
	a.POST("/products/:id/reject", h.RejectProduct)
	a.DELETE("/products/:id", h.DeleteProduct)
	a.GET("/orders", h.ListOrders)
}
