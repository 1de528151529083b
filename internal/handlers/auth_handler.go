package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/services"
	"github.com/mehrblog/backend/pkg/validation"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register requests a verification code for a phone number that does not
// have an account yet.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.authService.RequestCode(c.Request.Context(), req.Phone, services.RegisterMode)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"code sent": "The code has been sent to the phone number.",
		})
	case errors.Is(err, services.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"phone": "Invalid phone number!"})
	case errors.Is(err, services.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"Many Request": "You requested too much."})
	case errors.Is(err, services.ErrPhoneTaken):
		c.JSON(http.StatusUnauthorized, gin.H{"User exists": "Please enter a different phone number."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not send verification code"})
	}
}

// Login requests a verification code for an existing account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
		return
	}

	err := h.authService.RequestCode(c.Request.Context(), req.Phone, services.LoginMode)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"code sent": "The code has been sent to the phone number.",
		})
	case errors.Is(err, services.ErrInvalidPhone):
		c.JSON(http.StatusMethodNotAllowed, gin.H{"phone": "Invalid phone number!"})
	case errors.Is(err, services.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"Many Request": "You requested too much."})
	case errors.Is(err, services.ErrPhoneNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"No User exists": "Please enter another phone number."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not send verification code"})
	}
}

// Verify exchanges a valid code (and, for accounts with a two-step
// password, the password) for a token pair.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validation.ValidateOtpCode(req.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "Invalid Code!"})
		return
	}
	if len(req.Password) > 20 {
		c.JSON(http.StatusBadRequest, gin.H{"password": "Ensure this field has no more than 20 characters."})
		return
	}

	created, access, refresh, err := h.authService.VerifyCode(c.Request.Context(), req.Code, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"created": created,
			"refresh": refresh,
			"access":  access,
		})
	case errors.Is(err, services.ErrCodeNotFound), errors.Is(err, services.ErrCodeIncorrect):
		c.JSON(http.StatusNotAcceptable, gin.H{"Incorrect code": "The code entered is incorrect."})
	case errors.Is(err, services.ErrCodeExpired):
		c.JSON(http.StatusRequestTimeout, gin.H{"Code expired": "The entered code has expired."})
	case errors.Is(err, services.ErrPasswordIncorrect):
		c.JSON(http.StatusNotAcceptable, gin.H{"Incorrect password": "Password is incorrect."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
	}
}

// CreateTwoStepPassword enables the optional secondary password.
func (h *AuthHandler) CreateTwoStepPassword(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		NewPassword        string `json:"new_password" binding:"required,max=20"`
		ConfirmNewPassword string `json:"confirm_new_password" binding:"required,max=20"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.authService.CreateTwoStepPassword(c.Request.Context(), userID.(uuid.UUID), req.NewPassword, req.ConfirmNewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"Successful": "Your password created successfully."})
	case errors.Is(err, services.ErrTwoStepAlreadyEnabled):
		c.JSON(http.StatusUnauthorized, gin.H{"Error": "Your request could not be approved."})
	case errors.Is(err, services.ErrPasswordsDoNotMatch):
		c.JSON(http.StatusUnauthorized, gin.H{"Error": "Your password did not match!"})
	case errors.Is(err, services.ErrWeakPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"Error": "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create password"})
	}
}

// ChangeTwoStepPassword replaces the secondary password.
func (h *AuthHandler) ChangeTwoStepPassword(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		OldPassword        string `json:"old_password" binding:"required,max=20"`
		NewPassword        string `json:"new_password" binding:"required,max=20"`
		ConfirmNewPassword string `json:"confirm_new_password" binding:"required,max=20"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.authService.ChangeTwoStepPassword(c.Request.Context(), userID.(uuid.UUID), req.OldPassword, req.NewPassword, req.ConfirmNewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"Successful": "Your password was changed successfully."})
	case errors.Is(err, services.ErrTwoStepAlreadyEnabled):
		c.JSON(http.StatusUnauthorized, gin.H{"Error": "Your request could not be approved."})
	case errors.Is(err, services.ErrPasswordsDoNotMatch):
		c.JSON(http.StatusUnauthorized, gin.H{"Error": "Your password did not match."})
	case errors.Is(err, services.ErrWeakPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"Error": "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character"})
	case errors.Is(err, services.ErrOldPasswordIncorrect):
		c.JSON(http.StatusNotAcceptable, gin.H{"Error": "The password entered is incorrect!"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not change password"})
	}
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID.(uuid.UUID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}
