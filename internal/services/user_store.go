package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/models"
	"gorm.io/gorm"
)

// GormUserStore is the identity directory backed by Postgres.
type GormUserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("phone = ?", phone).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormUserStore) GetOrCreateByPhone(ctx context.Context, phone string) (*models.User, bool, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where(models.User{Phone: phone}).FirstOrCreate(&user)
	if result.Error != nil {
		return nil, false, result.Error
	}
	return &user, result.RowsAffected > 0, nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormUserStore) SetPassword(ctx context.Context, id uuid.UUID, hash string, enableTwoStep bool) error {
	updates := map[string]interface{}{"password": hash}
	if enableTwoStep {
		updates["two_step_password"] = true
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormUserStore) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var tokenModel models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&tokenModel).Error; err != nil {
		return nil, err
	}
	return &tokenModel, nil
}

func (s *GormUserStore) DeleteRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}
