package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrBlogNotFound     = errors.New("blog not found")
	ErrCategoryNotFound = errors.New("category not found")

	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
)

const (
	defaultBlogLimit = 20
	maxBlogLimit     = 20
)

type BlogService struct {
	db *gorm.DB
}

func NewBlogService(db *gorm.DB) *BlogService {
	return &BlogService{db: db}
}

// BlogCreateInput carries the writable fields of a blog.
type BlogCreateInput struct {
	Title       string
	Body        string
	Summary     string
	CategoryIDs []uuid.UUID
	Special     bool
	Status      string
}

// published scopes queries to publicly visible blogs
func (s *BlogService) published() *gorm.DB {
	return s.db.Model(&models.Blog{}).Where("status = ?", models.BlogStatusPublished)
}

// ListPublished returns published blogs, newest first, with limit/offset
// pagination and an optional title/summary search.
func (s *BlogService) ListPublished(limit, offset int, search string) ([]models.Blog, int64, error) {
	if limit <= 0 || limit > maxBlogLimit {
		limit = defaultBlogLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := s.published()
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title ILIKE ? OR summary ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var blogs []models.Blog
	err := query.
		Preload("Author").
		Preload("Categories").
		Preload("Likes").
		Order("publish DESC, updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&blogs).Error
	if err != nil {
		return nil, 0, err
	}

	return blogs, total, nil
}

// Create stores a new blog for the author. Non-superusers are forced to
// draft status without the special flag.
func (s *BlogService) Create(author *models.User, input BlogCreateInput) (*models.Blog, error) {
	blog := &models.Blog{
		AuthorID: author.ID,
		Title:    input.Title,
		Body:     input.Body,
		Summary:  input.Summary,
		Special:  input.Special,
		Status:   input.Status,
	}

	if !author.IsSuperuser {
		blog.Status = models.BlogStatusDraft
		blog.Special = false
	}
	if blog.Status == "" {
		blog.Status = models.BlogStatusDraft
	}

	blog.Slug = s.uniqueSlug(input.Title)

	return blog, s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(blog).Error; err != nil {
			return err
		}
		if len(input.CategoryIDs) > 0 {
			var categories []models.Category
			if err := tx.Where("id IN ?", input.CategoryIDs).Find(&categories).Error; err != nil {
				return err
			}
			if err := tx.Model(blog).Association("Categories").Replace(categories); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBySlug loads a blog regardless of status and counts the visit.
func (s *BlogService) GetBySlug(slug string) (*models.Blog, error) {
	var blog models.Blog
	err := s.db.
		Preload("Author").
		Preload("Categories").
		Preload("Likes").
		Where("slug = ?", slug).
		First(&blog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&blog).UpdateColumn("visits", gorm.Expr("visits + 1")).Error; err != nil {
		return nil, err
	}
	blog.Visits++

	return &blog, nil
}

// GetPublishedByID loads a published blog by primary key.
func (s *BlogService) GetPublishedByID(id uuid.UUID) (*models.Blog, error) {
	var blog models.Blog
	err := s.db.Where("id = ? AND status = ?", id, models.BlogStatusPublished).First(&blog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, err
	}
	return &blog, nil
}

// Update applies changes to an existing blog. The same forced-draft rule
// as Create applies for non-superusers.
func (s *BlogService) Update(blog *models.Blog, actor *models.User, input BlogCreateInput) error {
	updates := map[string]interface{}{
		"title":   input.Title,
		"body":    input.Body,
		"summary": input.Summary,
		"special": input.Special,
		"status":  input.Status,
	}

	if !actor.IsSuperuser {
		updates["status"] = models.BlogStatusDraft
		updates["special"] = false
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(blog).Updates(updates).Error; err != nil {
			return err
		}
		if input.CategoryIDs != nil {
			var categories []models.Category
			if err := tx.Where("id IN ?", input.CategoryIDs).Find(&categories).Error; err != nil {
				return err
			}
			if err := tx.Model(blog).Association("Categories").Replace(categories); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a blog together with its associations.
func (s *BlogService) Delete(blog *models.Blog) error {
	return s.db.Select("Categories", "Likes", "Comments").Delete(blog).Error
}

// SetImage stores the media key of the blog's image.
func (s *BlogService) SetImage(blogID uuid.UUID, imageURL string) error {
	return s.db.Model(&models.Blog{}).Where("id = ?", blogID).Update("image", imageURL).Error
}

// ToggleLike adds the user to the blog's likes, or removes them when
// already present. The blog must be published.
func (s *BlogService) ToggleLike(blogID uuid.UUID, user *models.User) error {
	blog, err := s.GetPublishedByID(blogID)
	if err != nil {
		return err
	}

	var count int64
	err = s.db.Table("blog_likes").
		Where("blog_id = ? AND user_id = ?", blog.ID, user.ID).
		Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return s.db.Model(blog).Association("Likes").Delete(user)
	}
	return s.db.Model(blog).Association("Likes").Append(user)
}

// ListCategories returns all active categories.
func (s *BlogService) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	err := s.db.
		Preload("Parent").
		Where("status = ?", true).
		Order("title").
		Find(&categories).Error
	return categories, err
}

// ListByCategory returns published blogs belonging to an active category.
func (s *BlogService) ListByCategory(slug string, limit, offset int) ([]models.Blog, error) {
	if limit <= 0 || limit > maxBlogLimit {
		limit = defaultBlogLimit
	}
	if offset < 0 {
		offset = 0
	}

	var category models.Category
	err := s.db.Where("slug = ? AND status = ?", slug, true).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	var blogs []models.Blog
	err = s.db.
		Preload("Author").
		Preload("Categories").
		Joins("JOIN blog_categories ON blog_categories.blog_id = blogs.id").
		Where("blog_categories.category_id = ? AND blogs.status = ?", category.ID, models.BlogStatusPublished).
		Order("blogs.publish DESC").
		Limit(limit).
		Offset(offset).
		Find(&blogs).Error
	return blogs, err
}

// uniqueSlug derives a url-safe slug from the title, suffixed when taken.
func (s *BlogService) uniqueSlug(title string) string {
	base := strings.Trim(slugInvalidChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if base == "" {
		base = "blog"
	}

	slug := base
	for i := 0; ; i++ {
		var count int64
		if err := s.db.Model(&models.Blog{}).Where("slug = ?", slug).Count(&count).Error; err != nil || count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
		if i > 3 {
			return slug
		}
	}
}
