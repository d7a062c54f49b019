package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-marketplace/internal/middleware"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/service"
	"github.com/iliyamo/tour-marketplace/internal/utils"
)

// ----- DTOs -----

type registerReq struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone"`
	Role            string `json:"role" validate:"required,oneof=merchant agent customer"`
	ManagingAgentID string `json:"managing_agent_id"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   model.User `json:"user"`
	Access tokenPart  `json:"access"`
}

// Register creates a pending account.  No token is issued until an admin
// approves it and the user logs in.
func (h *Handler) Register(c echo.Context) error {
	var req registerReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	hash, err := utils.HashPassword(req.Password, h.auth.BcryptCost)
	if err != nil {
		return h.writeError(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.engine.RegisterUser(ctx, service.NewUser{
		Email:           req.Email,
		PasswordHash:    hash,
		Name:            req.Name,
		Phone:           req.Phone,
		Role:            model.Role(req.Role),
		ManagingAgentID: req.ManagingAgentID,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Login verifies credentials and returns an access token.  Accounts in any
// status may log in; what they may do is decided per action.
func (h *Handler) Login(c echo.Context) error {
	var req loginReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.engine.UserByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return h.writeError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.auth.JWTSecret, u.ID, string(u.Role), h.auth.AccessTTLMin)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:   u,
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the caller's current account, re-read from the store.
func (h *Handler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.engine.GetUser(ctx, middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
