package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/config"
	"github.com/mehrblog/backend/internal/models"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ListUsers returns all users, optionally filtered by author flag and a
// phone or name search.
func (s *UserService) ListUsers(authorOnly bool, search string) ([]models.User, error) {
	query := s.db.Model(&models.User{}).Order("date_joined")
	if authorOnly {
		query = query.Where("author = ?", true)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("phone ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", pattern, pattern, pattern)
	}

	var users []models.User
	err := query.Find(&users).Error
	return users, err
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies administrative updates to an account.
func (s *UserService) UpdateUser(userID uuid.UUID, updates map[string]interface{}) (*models.User, error) {
	allowedFields := map[string]bool{
		"first_name":   true,
		"last_name":    true,
		"author":       true,
		"is_staff":     true,
		"is_superuser": true,
		"is_active":    true,
		"special_user": true,
	}

	filteredUpdates := make(map[string]interface{})
	for key, value := range updates {
		if allowedFields[key] {
			filteredUpdates[key] = value
		}
	}

	if len(filteredUpdates) == 0 {
		return nil, errors.New("no valid fields to update")
	}

	result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(filteredUpdates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUserByID(userID)
}

// UpdateProfile changes the fields an account owner may edit; phone stays
// read-only.
func (s *UserService) UpdateProfile(userID uuid.UUID, firstName, lastName string) (*models.User, error) {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUserByID(userID)
}

// DeleteUser removes an account with its tokens, comments and likes.
func (s *UserService) DeleteUser(userID uuid.UUID) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Select("Blogs").Delete(user).Error
	})
}

// CreateDefaultSuperuser bootstraps the superuser account from env
// configuration when it does not exist yet.
func (s *UserService) CreateDefaultSuperuser(cfg *config.Config) error {
	if cfg.AdminPhone == "" {
		return nil
	}

	var existing models.User
	err := s.db.Where("phone = ?", cfg.AdminPhone).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	admin := &models.User{
		Phone:       cfg.AdminPhone,
		FirstName:   cfg.AdminFirstName,
		LastName:    cfg.AdminLastName,
		IsStaff:     true,
		IsSuperuser: true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("Default superuser created for %s", cfg.AdminPhone)
	return nil
}
