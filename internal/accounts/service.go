// Package accounts registers users, checks credentials and edits profiles.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geocoder89/rsvphub/internal/domain/user"
	"github.com/geocoder89/rsvphub/internal/sanitize"
	"github.com/geocoder89/rsvphub/internal/security"
	"go.opentelemetry.io/otel"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, error)
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,bcryptmax"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SessionUser is the slim user echoed back with a token.
type SessionUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

type Service struct {
	users  UserStore
	tokens TokenIssuer
}

func NewService(users UserStore, tokens TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

var tracer = otel.Tracer("github.com/geocoder89/rsvphub/internal/accounts")

// Emails are case-sensitive as stored; only surrounding blanks are dropped.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	ctx, span := tracer.Start(ctx, "accounts.Register")
	defer span.End()

	email := normalizeEmail(req.Email)

	// friendlier early exit; the unique index is what actually guarantees it
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return Session{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return Session{}, ErrPasswordTooLong
		}
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.New(sanitize.Text(req.Name), email, hash))
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	slog.Default().InfoContext(ctx, "user_registered", "user_id", u.ID)

	return s.session(u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	ctx, span := tracer.Start(ctx, "accounts.Login")
	defer span.End()

	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			security.BurnCompare(req.Password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup email: %w", err)
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.session(u)
}

func (s *Service) Me(ctx context.Context, userID string) (user.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (user.User, error) {
	ctx, span := tracer.Start(ctx, "accounts.UpdateProfile")
	defer span.End()

	if upd.Name != nil {
		name := sanitize.Text(*upd.Name)
		upd.Name = &name
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		upd.Email = &email
	}
	if upd.Mobile != nil {
		mobile := sanitize.Text(*upd.Mobile)
		upd.Mobile = &mobile
	}

	if upd.IsEmpty() {
		return s.users.GetByID(ctx, userID)
	}

	u, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *Service) session(u user.User) (Session, error) {
	token, err := s.tokens.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	return Session{
		Token: token,
		User: SessionUser{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			ProfileImage: u.ProfileImage,
		},
	}, nil
}
