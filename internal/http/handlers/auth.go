package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/rsvphub/internal/accounts"
	"github.com/geocoder89/rsvphub/internal/config"
	"github.com/geocoder89/rsvphub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type AccountsService interface {
	Register(ctx context.Context, req accounts.RegisterRequest) (accounts.Session, error)
	Login(ctx context.Context, req accounts.LoginRequest) (accounts.Session, error)
	Me(ctx context.Context, userID string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (user.User, error)
}

type AuthHandler struct {
	accounts AccountsService
}

func NewAuthHandler(svc AccountsService) *AuthHandler {
	return &AuthHandler{accounts: svc}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req accounts.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	session, err := h.accounts.Register(cctx, req)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondRejected(ctx, "email_taken", "User already exists")
			return
		}
		if errors.Is(err, accounts.ErrPasswordTooLong) {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "password",
				Rule:    "bcryptmax",
				Message: validationMessage("bcryptmax", ""),
			}}})
			return
		}

		RespondInternal(ctx, "Could not create user", err)
		return
	}

	ctx.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	session, err := h.accounts.Login(cctx, accounts.LoginRequest(req))

	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			RespondRejected(ctx, "invalid_credentials", "Invalid Credentials")
			return
		}

		RespondInternal(ctx, "Could not log in", err)
		return
	}

	ctx.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.accounts.Me(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not load profile", err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req user.ProfileUpdate

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.accounts.UpdateProfile(cctx, userID, req)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondRejected(ctx, "email_taken", "Email is already in use")
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		default:
			RespondInternal(ctx, "Could not update profile", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// LoginRequest skips the email format rule so a malformed email gets the
// same answer as an unknown one.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
