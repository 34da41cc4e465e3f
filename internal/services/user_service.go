package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/team-todo-api/internal/constants"
	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/notify"
	"github.com/yukikurage/team-todo-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService manages accounts and the created-by hierarchy.
type UserService struct {
	userRepo   repository.UserRepository
	deviceRepo repository.DeviceTokenRepository
	hierarchy  *HierarchyResolver
	notifier   notify.Notifier
	metrics    metrics.Collector
	log        *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, deviceRepo repository.DeviceTokenRepository, notifier notify.Notifier, collector metrics.Collector, log *slog.Logger) *UserService {
	return &UserService{
		userRepo:   userRepo,
		deviceRepo: deviceRepo,
		hierarchy:  NewHierarchyResolver(userRepo),
		notifier:   notifier,
		metrics:    collector,
		log:        log,
	}
}

// CreateUserInput represents input for creating an account
type CreateUserInput struct {
	LastName  string
	FirstName string
	Surname   string
	Login     string
	Password  string
	Role      models.Role
}

// UpdateUserInput replaces the profile of an account. An empty Password keeps the current one.
type UpdateUserInput struct {
	LastName  string
	FirstName string
	Surname   string
	Login     string
	Password  string
	Role      models.Role
}

// GetUser returns a user by id, soft-deleted accounts included.
func (s *UserService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByIDUnscoped(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListCreatedBy returns actorID and everyone below them, soft-deleted accounts included.
func (s *UserService) ListCreatedBy(ctx context.Context, actorID uint64) ([]models.User, error) {
	return s.hierarchy.ResolveManagedUsers(ctx, actorID)
}

// ListManageable returns the active part of actorID's hierarchy.
func (s *UserService) ListManageable(ctx context.Context, actorID uint64) ([]models.User, error) {
	return s.hierarchy.ResolveActiveManagedUsers(ctx, actorID)
}

// CreateUser creates an account owned by actor.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput, actor Actor) (*models.User, error) {
	if input.Role == "" {
		input.Role = models.RolePerformer
	}
	if err := s.authorizeRole(actor, input.Role); err != nil {
		return nil, err
	}

	profile, err := normalizeProfile(input.LastName, input.FirstName, input.Surname, input.Login)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if err := s.ensureLoginFree(ctx, profile.Login, 0); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	creator := actor.ID
	user := &models.User{
		LastName:     profile.LastName,
		FirstName:    profile.FirstName,
		Surname:      profile.Surname,
		Login:        profile.Login,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedBy:    &creator,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.Increment(metrics.UserCreated, map[string]string{"role": string(user.Role)})
	s.log.Info("user created", "user_id", user.ID, "created_by", actor.ID, "role", user.Role)

	return user, nil
}

// UpdateUser rewrites the profile of a user in actor's hierarchy.
func (s *UserService) UpdateUser(ctx context.Context, id uint64, input UpdateUserInput, actor Actor) (*models.User, error) {
	user, err := s.manageableUser(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if input.Role == "" {
		input.Role = user.Role
	}
	if input.Role != user.Role {
		if err := s.authorizeRole(actor, input.Role); err != nil {
			return nil, err
		}
	}

	profile, err := normalizeProfile(input.LastName, input.FirstName, input.Surname, input.Login)
	if err != nil {
		return nil, err
	}
	if profile.Login != user.Login {
		if err := s.ensureLoginFree(ctx, profile.Login, user.ID); err != nil {
			return nil, err
		}
	}

	if input.Password != "" {
		if len(input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.LastName = profile.LastName
	user.FirstName = profile.FirstName
	user.Surname = profile.Surname
	user.Login = profile.Login
	user.Role = input.Role

	if err := s.userRepo.Update(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.log.Info("user updated", "user_id", user.ID, "actor_id", actor.ID)
	return user, nil
}

// SoftDeleteUser tells the user's devices, drops their tokens and marks the account deleted.
func (s *UserService) SoftDeleteUser(ctx context.Context, id uint64, actor Actor) error {
	if id == actor.ID {
		return ErrCannotDeleteSelf
	}

	user, err := s.manageableUser(ctx, id, actor)
	if err != nil {
		return err
	}

	tokens, err := s.deviceRepo.TokensForUsers(ctx, []uint64{user.ID})
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}

	if err := s.userRepo.SoftDelete(ctx, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.metrics.Increment(metrics.UserDeleted, nil)
	s.log.Info("user deleted", "user_id", user.ID, "actor_id", actor.ID, "devices", len(tokens))

	s.notifier.NotifyDevices(ctx, notify.EventAccountDeleted, user.Login, tokens)
	return nil
}

// manageableUser loads an active user that actor is allowed to administer.
func (s *UserService) manageableUser(ctx context.Context, id uint64, actor Actor) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if actor.Role == models.RoleAdmin {
		return user, nil
	}

	ok, err := s.hierarchy.Manages(ctx, actor.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotManageable
	}
	return user, nil
}

// authorizeRole: admins may grant any role, managers only performer.
func (s *UserService) authorizeRole(actor Actor, role models.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleManager:
		if role == models.RolePerformer {
			return nil
		}
	}
	return ErrRoleNotAllowed
}

func (s *UserService) ensureLoginFree(ctx context.Context, login string, ownerID uint64) error {
	existing, err := s.userRepo.FindByLogin(ctx, login)
	if err == nil {
		if existing.ID != ownerID {
			return ErrLoginTaken
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check login: %w", err)
	}
	return nil
}

type profile struct {
	LastName  string
	FirstName string
	Surname   string
	Login     string
}

func normalizeProfile(lastName, firstName, surname, login string) (profile, error) {
	p := profile{
		LastName:  strings.TrimSpace(lastName),
		FirstName: strings.TrimSpace(firstName),
		Surname:   strings.TrimSpace(surname),
		Login:     strings.TrimSpace(login),
	}
	if p.Login == "" {
		return p, ErrLoginRequired
	}
	if utf8.RuneCountInString(p.Login) > constants.MaxLoginLength {
		return p, ErrLoginTooLong
	}
	if p.LastName == "" || p.FirstName == "" {
		return p, ErrNameRequired
	}
	return p, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
