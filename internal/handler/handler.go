package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/service"
)

// requestTimeout bounds the store work behind a single request.
const requestTimeout = 5 * time.Second

// AuthConfig carries what the auth endpoints need to issue tokens.
type AuthConfig struct {
	JWTSecret    string
	AccessTTLMin int
	BcryptCost   int
}

// Handler exposes the engine over HTTP.  Handlers only decode input and
// encode results; every decision is taken by the engine.
type Handler struct {
	engine   *service.Engine
	auth     AuthConfig
	log      *logrus.Logger
	validate *validator.Validate
}

// New returns a Handler backed by engine.
func New(engine *service.Engine, auth AuthConfig, log *logrus.Logger) *Handler {
	if engine == nil {
		panic("nil engine passed to handler.New")
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{engine: engine, auth: auth, log: log, validate: v}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the request body into dst and validates its tags.  The
// returned error is already shaped for writeError.
func (h *Handler) bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return model.NewValidationError("body", "malformed request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return model.NewValidationError(ves[0].Field(), "failed "+ves[0].Tag()+" check")
		}
		return model.NewValidationError("body", err.Error())
	}
	return nil
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// writeError maps the engine's failure taxonomy onto HTTP statuses.
func (h *Handler) writeError(c echo.Context, err error) error {
	var (
		ve *model.ValidationError
		ie *model.InsufficientError
		de *model.DeniedError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorBody{Error: "validation_failed", Field: ve.Field, Message: ve.Reason})
	case errors.Is(err, model.ErrNoSuchDate):
		return c.JSON(http.StatusNotFound, errorBody{Error: "no_such_date", Message: err.Error()})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.As(err, &de):
		return c.JSON(http.StatusForbidden, errorBody{Error: "forbidden", Message: de.Reason})
	case errors.As(err, &ie):
		avail := ie.Available
		return c.JSON(http.StatusConflict, errorBody{Error: "insufficient_stock", Requested: ie.Requested, Available: &avail})
	case errors.Is(err, model.ErrCapacityBelowReserved):
		return c.JSON(http.StatusConflict, errorBody{Error: "capacity_below_reserved", Message: err.Error()})
	case errors.Is(err, model.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, errorBody{Error: "invalid_transition", Message: err.Error()})
	case errors.Is(err, model.ErrProductNotApproved):
		return c.JSON(http.StatusConflict, errorBody{Error: "product_not_approved"})
	case errors.Is(err, model.ErrConflict):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "conflict", Message: "please retry"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "timeout"})
	}
	h.log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal"})
}
