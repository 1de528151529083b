package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/models"
	"gorm.io/gorm"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentService struct {
	db    *gorm.DB
	blogs *BlogService
}

func NewCommentService(db *gorm.DB, blogs *BlogService) *CommentService {
	return &CommentService{db: db, blogs: blogs}
}

// ListForBlog returns the comments of a published blog, newest first.
func (s *CommentService) ListForBlog(blogID uuid.UUID) ([]models.Comment, error) {
	if _, err := s.blogs.GetPublishedByID(blogID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := s.db.
		Preload("User").
		Where("blog_id = ?", blogID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

// Create stores a comment on a published blog.
func (s *CommentService) Create(user *models.User, blogID uuid.UUID, name, body string, parentID *uuid.UUID) (*models.Comment, error) {
	blog, err := s.blogs.GetPublishedByID(blogID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		UserID:   user.ID,
		BlogID:   blog.ID,
		Name:     name,
		ParentID: parentID,
		Body:     body,
	}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// findOwned loads a comment only when it belongs to the user.
func (s *CommentService) findOwned(commentID, userID uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.Where("id = ? AND user_id = ?", commentID, userID).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// Update edits a comment owned by the user.
func (s *CommentService) Update(user *models.User, commentID uuid.UUID, name, body string, parentID *uuid.UUID) (*models.Comment, error) {
	comment, err := s.findOwned(commentID, user.ID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name": name,
		"body": body,
	}
	if parentID != nil {
		updates["parent_id"] = parentID
	}

	if err := s.db.Model(comment).Updates(updates).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes a comment owned by the user.
func (s *CommentService) Delete(user *models.User, commentID uuid.UUID) error {
	comment, err := s.findOwned(commentID, user.ID)
	if err != nil {
		return err
	}
	return s.db.Delete(comment).Error
}
