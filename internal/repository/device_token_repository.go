package repository

import (
	"context"

	"github.com/yukikurage/team-todo-api/internal/models"
	"gorm.io/gorm"
)

// GormDeviceTokenRepository is a GORM implementation of DeviceTokenRepository
type GormDeviceTokenRepository struct {
	db *gorm.DB
}

// NewDeviceTokenRepository creates a new DeviceTokenRepository
func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &GormDeviceTokenRepository{db: db}
}

func (r *GormDeviceTokenRepository) FindByToken(ctx context.Context, token string) (*models.UserDeviceToken, error) {
	var row models.UserDeviceToken
	if err := r.db.WithContext(ctx).Where("device_token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GormDeviceTokenRepository) Create(ctx context.Context, token *models.UserDeviceToken) error {
	return r.db.WithContext(ctx).Omit("User").Create(token).Error
}

func (r *GormDeviceTokenRepository) Update(ctx context.Context, token *models.UserDeviceToken) error {
	return r.db.WithContext(ctx).Omit("User").Save(token).Error
}

func (r *GormDeviceTokenRepository) DeleteByToken(ctx context.Context, userID uint64, token string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND device_token = ?", userID, token).
		Delete(&models.UserDeviceToken{})
	return result.RowsAffected, result.Error
}

func (r *GormDeviceTokenRepository) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserDeviceToken{})
	return result.RowsAffected, result.Error
}

// TokensForUsers returns the device tokens of userIDs ordered by owner, then registration
func (r *GormDeviceTokenRepository) TokensForUsers(ctx context.Context, userIDs []uint64) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var tokens []string
	err := r.db.WithContext(ctx).
		Model(&models.UserDeviceToken{}).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC, id ASC").
		Pluck("device_token", &tokens).Error
	return tokens, err
}
