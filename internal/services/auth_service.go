package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/team-todo-api/internal/auth"
	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	denylist auth.Denylist
	metrics  metrics.Collector
	log      *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager, denylist auth.Denylist, collector metrics.Collector, log *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		denylist: denylist,
		metrics:  collector,
		log:      log,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Login    string
	Password string
}

// Session is the result of a successful login.
type Session struct {
	Token  string
	Claims *auth.Claims
	User   *models.User
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*Session, error) {
	user, err := s.userRepo.FindByLogin(ctx, strings.TrimSpace(input.Login))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.countLogin("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.countLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if user.IsDeleted() {
		s.countLogin("account_deleted")
		return nil, ErrAccountDeleted
	}

	token, claims, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}

	s.countLogin("success")
	s.log.Info("user logged in", "user_id", user.ID, "role", user.Role)

	return &Session{Token: token, Claims: claims, User: user}, nil
}

// Validate parses a bearer token and checks it was neither revoked nor issued
// to an account that has since been deleted.
func (s *AuthService) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountDeleted
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return claims, nil
}

// Logout revokes the token identified by claims until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims.ExpiresAt == nil {
		return auth.ErrInvalidToken
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.log.Info("user logged out", "subject", claims.Subject)
	return nil
}

func (s *AuthService) countLogin(result string) {
	s.metrics.Increment(metrics.LoginAttempts, map[string]string{"result": result})
}
