package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/team-todo-api/internal/constants"
	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/repository"
	"gorm.io/gorm"
)

// DeviceOutcome describes what a register or unregister call changed.
type DeviceOutcome string

const (
	DeviceRegistered DeviceOutcome = "registered"
	DeviceUpdated    DeviceOutcome = "updated"
	DeviceRemoved    DeviceOutcome = "removed"
	DeviceUpToDate   DeviceOutcome = "up-to-date"
)

// DeviceService keeps the push tokens of users.
type DeviceService struct {
	deviceRepo repository.DeviceTokenRepository
	metrics    metrics.Collector
	log        *slog.Logger
}

func NewDeviceService(deviceRepo repository.DeviceTokenRepository, collector metrics.Collector, log *slog.Logger) *DeviceService {
	return &DeviceService{deviceRepo: deviceRepo, metrics: collector, log: log}
}

// Register records token for userID. Registering the same token again is a no-op;
// a new device type label replaces the stored one.
func (s *DeviceService) Register(ctx context.Context, userID uint64, token, deviceType string) (DeviceOutcome, error) {
	token = strings.TrimSpace(token)
	deviceType = strings.TrimSpace(deviceType)
	if token == "" {
		return "", ErrDeviceTokenRequired
	}
	if len(token) > constants.MaxDeviceTokenLen || len(deviceType) > constants.MaxDeviceTypeLen {
		return "", ErrDeviceTokenTooLong
	}

	existing, err := s.deviceRepo.FindByToken(ctx, token)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, userID, deviceType)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", fmt.Errorf("failed to find device token: %w", err)
	}

	row := &models.UserDeviceToken{UserID: userID, DeviceToken: token, DeviceType: deviceType}
	if err := s.deviceRepo.Create(ctx, row); err != nil {
		if repository.IsUniqueViolation(err) {
			// lost a race with a concurrent registration of the same token
			existing, findErr := s.deviceRepo.FindByToken(ctx, token)
			if findErr != nil {
				return "", fmt.Errorf("failed to find device token: %w", findErr)
			}
			return s.refresh(ctx, existing, userID, deviceType)
		}
		return "", fmt.Errorf("failed to register device token: %w", err)
	}

	s.count(DeviceRegistered)
	s.log.Info("device registered", "user_id", userID, "device_type", deviceType)
	return DeviceRegistered, nil
}

func (s *DeviceService) refresh(ctx context.Context, existing *models.UserDeviceToken, userID uint64, deviceType string) (DeviceOutcome, error) {
	if existing.UserID != userID {
		return "", ErrDeviceTokenTaken
	}
	if existing.DeviceType == deviceType {
		s.count(DeviceUpToDate)
		return DeviceUpToDate, nil
	}

	existing.DeviceType = deviceType
	if err := s.deviceRepo.Update(ctx, existing); err != nil {
		return "", fmt.Errorf("failed to update device token: %w", err)
	}

	s.count(DeviceUpdated)
	return DeviceUpdated, nil
}

// Unregister removes one token of userID.
func (s *DeviceService) Unregister(ctx context.Context, userID uint64, token string) (DeviceOutcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrDeviceTokenRequired
	}

	removed, err := s.deviceRepo.DeleteByToken(ctx, userID, token)
	if err != nil {
		return "", fmt.Errorf("failed to remove device token: %w", err)
	}
	if removed == 0 {
		return DeviceUpToDate, nil
	}

	s.count(DeviceRemoved)
	return DeviceRemoved, nil
}

// UnregisterAll removes every token of userID and returns how many there were.
func (s *DeviceService) UnregisterAll(ctx context.Context, userID uint64) (int64, error) {
	removed, err := s.deviceRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove device tokens: %w", err)
	}
	if removed > 0 {
		s.count(DeviceRemoved)
		s.log.Info("devices unregistered", "user_id", userID, "count", removed)
	}
	return removed, nil
}

func (s *DeviceService) count(outcome DeviceOutcome) {
	s.metrics.Increment(metrics.DeviceRegistrations, map[string]string{"outcome": string(outcome)})
}
