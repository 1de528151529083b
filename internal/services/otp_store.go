package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/mehrblog/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOtpStore persists PhoneOtp records in Postgres.
type GormOtpStore struct {
	db *gorm.DB
}

func NewOtpStore(db *gorm.DB) *GormOtpStore {
	return &GormOtpStore{db: db}
}

func (s *GormOtpStore) GetOrCreate(ctx context.Context, phone string) (*models.PhoneOtp, error) {
	var record models.PhoneOtp
	err := s.db.WithContext(ctx).Where(models.PhoneOtp{Phone: phone}).FirstOrCreate(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormOtpStore) FindByCode(ctx context.Context, code string) (*models.PhoneOtp, error) {
	var record models.PhoneOtp
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &record, nil
}

// IssueCode stores the code and bumps the counter inside one transaction.
// The row lock serializes concurrent issuances for the same phone so the
// ceiling cannot be overshot by racing requests.
func (s *GormOtpStore) IssueCode(ctx context.Context, phone, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.PhoneOtp
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("phone = ?", phone).First(&record).Error; err != nil {
			return fmt.Errorf("failed to lock otp record: %w", err)
		}

		if record.Count >= maxOtpAttempts {
			return ErrTooManyRequests
		}

		return tx.Model(&record).Updates(map[string]interface{}{
			"code":  code,
			"count": record.Count + 1,
		}).Error
	})
}

func (s *GormOtpStore) MarkVerified(ctx context.Context, phone string) error {
	return s.db.WithContext(ctx).Model(&models.PhoneOtp{}).
		Where("phone = ?", phone).
		Updates(map[string]interface{}{
			"verified": true,
			"count":    0,
		}).Error
}
