package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/middleware"
	"github.com/mehrblog/backend/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type commentRequest struct {
	Name     string  `json:"name" binding:"required,max=20"`
	Body     string  `json:"body" binding:"required"`
	ParentID *string `json:"parent_id"`
}

func (r *commentRequest) parentUUID() (*uuid.UUID, error) {
	if r.ParentID == nil || *r.ParentID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*r.ParentID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ListForBlog returns the comments of a published blog.
func (h *CommentHandler) ListForBlog(c *gin.Context) {
	blogID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid blog id"})
		return
	}

	comments, err := h.commentService.ListForBlog(blogID)
	if err != nil {
		if errors.Is(err, services.ErrBlogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, comments)
}

// Create posts a comment on a published blog.
func (h *CommentHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		commentRequest
		BlogID string `json:"blog_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blogID, err := uuid.Parse(req.BlogID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid blog id"})
		return
	}

	parentID, err := req.parentUUID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent id"})
		return
	}

	comment, err := h.commentService.Create(user, blogID, req.Name, req.Body, parentID)
	if err != nil {
		if errors.Is(err, services.ErrBlogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// Update edits a comment owned by the actor.
func (h *CommentHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment id"})
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parentID, err := req.parentUUID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent id"})
		return
	}

	comment, err := h.commentService.Update(user, commentID, req.Name, req.Body, parentID)
	if err != nil {
		if errors.Is(err, services.ErrCommentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	c.JSON(http.StatusOK, comment)
}

// Delete removes a comment owned by the actor.
func (h *CommentHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment id"})
		return
	}

	if err := h.commentService.Delete(user, commentID); err != nil {
		if errors.Is(err, services.ErrCommentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.Status(http.StatusNoContent)
}
