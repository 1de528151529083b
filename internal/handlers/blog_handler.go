package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/middleware"
	"github.com/mehrblog/backend/internal/models"
	"github.com/mehrblog/backend/internal/services"
)

type BlogHandler struct {
	blogService    *services.BlogService
	storageService *services.StorageService
}

func NewBlogHandler(blogService *services.BlogService, storageService *services.StorageService) *BlogHandler {
	return &BlogHandler{blogService: blogService, storageService: storageService}
}

type blogRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Body        string   `json:"body" binding:"required"`
	Summary     string   `json:"summary" binding:"max=400"`
	CategoryIDs []string `json:"category_ids"`
	Special     bool     `json:"special"`
	Status      string   `json:"status" binding:"omitempty,oneof=p d"`
}

func (r *blogRequest) toInput() (services.BlogCreateInput, error) {
	input := services.BlogCreateInput{
		Title:   r.Title,
		Body:    r.Body,
		Summary: r.Summary,
		Special: r.Special,
		Status:  r.Status,
	}
	if input.Status == "" {
		input.Status = models.BlogStatusDraft
	}
	for _, raw := range r.CategoryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, fmt.Errorf("invalid category id %q", raw)
		}
		input.CategoryIDs = append(input.CategoryIDs, id)
	}
	return input, nil
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// List returns published blogs, newest first, with optional search.
func (h *BlogHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	search := strings.TrimSpace(c.Query("search"))

	blogs, total, err := h.blogService.ListPublished(limit, offset, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blogs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   total,
		"results": blogs,
	})
}

// Create stores a new blog for the authenticated author.
func (h *BlogHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req blogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blog, err := h.blogService.Create(user, input)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create blog"})
		return
	}

	c.JSON(http.StatusCreated, blog)
}

// Get returns a single blog by slug and counts the visit.
func (h *BlogHandler) Get(c *gin.Context) {
	blog, err := h.blogService.GetBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrBlogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blog"})
		return
	}

	c.JSON(http.StatusOK, blog)
}

// canEdit reports whether the actor owns the blog or is a superuser.
func canEdit(actor *models.User, blog *models.Blog) bool {
	return actor.IsSuperuser || blog.AuthorID == actor.ID
}

// Update modifies an existing blog owned by the actor.
func (h *BlogHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	blog, err := h.blogService.GetBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrBlogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blog"})
		return
	}

	if !canEdit(user, blog) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to edit this blog"})
		return
	}

	var req blogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.blogService.Update(blog, user, input); err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update blog"})
		return
	}

	c.JSON(http.StatusOK, blog)
}

// Delete removes a blog owned by the actor.
func (h *BlogHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	blog, err := h.blogService.GetBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrBlogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blog"})
		return
	}

	if !canEdit(user, blog) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this blog"})
		return
	}

	if err := h.blogService.Delete(blog); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete blog"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleLike likes a published blog, or unlikes it when already liked.
func (h *BlogHandler) ToggleLike(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	blogID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid blog id"})
		return
	}

	if err := h.blogService.ToggleLike(blogID, user); err != nil {
		if errors.Is(err, services.ErrBlogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle like"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"Ok": "Your request was successful."})
}

// ListCategories returns all active categories.
func (h *BlogHandler) ListCategories(c *gin.Context) {
	categories, err := h.blogService.ListCategories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// ListByCategory returns published blogs of a category.
func (h *BlogHandler) ListByCategory(c *gin.Context) {
	limit, offset := pagination(c)

	blogs, err := h.blogService.ListByCategory(c.Param("slug"), limit, offset)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blogs"})
		return
	}

	c.JSON(http.StatusOK, blogs)
}

// UploadImage attaches an uploaded image to a blog owned by the actor.
func (h *BlogHandler) UploadImage(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	blog, err := h.blogService.GetBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrBlogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blog"})
		return
	}

	if !canEdit(user, blog) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to edit this blog"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image type"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read image"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("images/%s/%s%s", blog.ID, uuid.NewString(), ext)
	if err := h.storageService.UploadImage(c.Request.Context(), key, file, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
		return
	}

	if err := h.blogService.SetImage(blog.ID, key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": h.storageService.ImageURL(key)})
}
