package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mehrblog/backend/internal/config"
	"github.com/mehrblog/backend/internal/models"
	"github.com/mehrblog/backend/pkg/crypto"
	jwtpkg "github.com/mehrblog/backend/pkg/jwt"
	"github.com/mehrblog/backend/pkg/otp"
	"github.com/mehrblog/backend/pkg/validation"
	"github.com/redis/go-redis/v9"
)

const (
	// otpCacheTTL is how long an issued code stays valid. Fixed; the
	// persistent PhoneOtp.Code never expires and only serves lookups.
	otpCacheTTL = 300 * time.Second

	// maxOtpAttempts is the issuance ceiling per phone. The counter only
	// resets on a successful verification.
	maxOtpAttempts = 5
)

var (
	ErrInvalidPhone          = errors.New("invalid phone number")
	ErrTooManyRequests       = errors.New("you requested too much")
	ErrPhoneTaken            = errors.New("please enter a different phone number")
	ErrPhoneNotFound         = errors.New("please enter another phone number")
	ErrCodeNotFound          = errors.New("the code entered is incorrect")
	ErrCodeExpired           = errors.New("the entered code has expired")
	ErrCodeIncorrect         = errors.New("the code entered is incorrect")
	ErrPasswordIncorrect     = errors.New("password is incorrect")
	ErrTwoStepAlreadyEnabled = errors.New("your request could not be approved")
	ErrPasswordsDoNotMatch   = errors.New("your password did not match")
	ErrWeakPassword          = errors.New("password is too weak")
	ErrOldPasswordIncorrect  = errors.New("the password entered is incorrect")
	ErrUserNotFound          = errors.New("user not found")
)

// AuthMode selects the existence check applied before a code is issued.
type AuthMode string

const (
	RegisterMode AuthMode = "register"
	LoginMode    AuthMode = "login"
)

// OtpStore is the persistent attempt record per phone number.
type OtpStore interface {
	GetOrCreate(ctx context.Context, phone string) (*models.PhoneOtp, error)
	// FindByCode looks a record up by code value across all phones. This
	// mirrors the verification flow, which receives no phone from the
	// client; short numeric codes can collide across phones inside the
	// cache window.
	FindByCode(ctx context.Context, code string) (*models.PhoneOtp, error)
	// IssueCode stores the new code and increments the attempt counter in
	// a single atomic step, re-checking the ceiling under a row lock.
	// Returns ErrTooManyRequests when the ceiling is already reached.
	IssueCode(ctx context.Context, phone, code string) error
	// MarkVerified sets the verified flag and resets the counter.
	MarkVerified(ctx context.Context, phone string) error
}

// UserStore is the identity directory backing the auth flow.
type UserStore interface {
	PhoneExists(ctx context.Context, phone string) (bool, error)
	GetOrCreateByPhone(ctx context.Context, phone string) (*models.User, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string, enableTwoStep bool) error
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// Notifier delivers a verification code to a phone. Delivery is
// best-effort; callers never observe the result.
type Notifier interface {
	SendVerificationCode(phone, code string) error
}

type AuthService struct {
	otps  OtpStore
	users UserStore
	redis *redis.Client
	sms   Notifier
	cfg   *config.Config
}

func NewAuthService(otps OtpStore, users UserStore, redisClient *redis.Client, sms Notifier, cfg *config.Config) *AuthService {
	return &AuthService{
		otps:  otps,
		users: users,
		redis: redisClient,
		sms:   sms,
		cfg:   cfg,
	}
}

func otpCacheKey(phone string) string {
	return fmt.Sprintf("otp:%s", phone)
}

// RequestCode issues a fresh verification code for the phone and sends it
// via SMS. Each call regenerates the code and bumps the attempt counter,
// invalidating any previously issued code.
func (s *AuthService) RequestCode(ctx context.Context, phone string, mode AuthMode) error {
	if !validation.ValidatePhone(phone) {
		return ErrInvalidPhone
	}

	record, err := s.otps.GetOrCreate(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to load otp record: %w", err)
	}

	if record.Count >= maxOtpAttempts {
		return ErrTooManyRequests
	}

	exists, err := s.users.PhoneExists(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to check phone: %w", err)
	}

	switch mode {
	case RegisterMode:
		if exists {
			return ErrPhoneTaken
		}
	case LoginMode:
		if !exists {
			return ErrPhoneNotFound
		}
	}

	code, err := otp.Generate()
	if err != nil {
		return err
	}

	// Counter re-check and increment happen atomically in the store; the
	// Count check above only preserves the no-side-effect fast path.
	if err := s.otps.IssueCode(ctx, phone, code); err != nil {
		return err
	}

	if err := s.redis.Set(ctx, otpCacheKey(phone), code, otpCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache otp code: %w", err)
	}

	go func() {
		if err := s.sms.SendVerificationCode(phone, code); err != nil {
			log.Printf("WARN: Failed to send verification code to %s: %v", phone, err)
		}
	}()

	return nil
}

// VerifyCode checks a submitted code against the cache and, when the
// matching account has a two-step password, the submitted password. On
// success it returns whether the account was just created together with a
// fresh token pair.
func (s *AuthService) VerifyCode(ctx context.Context, code, password string) (bool, string, string, error) {
	record, err := s.otps.FindByCode(ctx, code)
	if err != nil {
		return false, "", "", err
	}

	cached, err := s.redis.Get(ctx, otpCacheKey(record.Phone)).Result()
	if errors.Is(err, redis.Nil) {
		return false, "", "", ErrCodeExpired
	}
	if err != nil {
		return false, "", "", fmt.Errorf("failed to read otp cache: %w", err)
	}

	// The persistent record and the cache can disagree when a newer code
	// was issued after the cached one; the cache wins.
	if cached != code {
		return false, "", "", ErrCodeIncorrect
	}

	user, created, err := s.users.GetOrCreateByPhone(ctx, record.Phone)
	if err != nil {
		return false, "", "", fmt.Errorf("failed to load user: %w", err)
	}

	if user.TwoStepPassword {
		if !crypto.CheckPassword(password, user.Password) {
			return false, "", "", ErrPasswordIncorrect
		}
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return false, "", "", err
	}

	if err := s.redis.Del(ctx, otpCacheKey(record.Phone)).Err(); err != nil {
		log.Printf("WARN: Failed to delete otp cache entry for %s: %v", record.Phone, err)
	}

	if err := s.otps.MarkVerified(ctx, record.Phone); err != nil {
		return false, "", "", fmt.Errorf("failed to mark otp verified: %w", err)
	}

	return created, accessToken, refreshToken, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (string, string, error) {
	accessToken, err := jwtpkg.GenerateToken(user.ID.String(), jwtpkg.AccessToken, s.cfg.JWTSecret, s.cfg.JWTAccessTokenDuration)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := jwtpkg.GenerateToken(user.ID.String(), jwtpkg.RefreshToken, s.cfg.JWTSecret, s.cfg.JWTRefreshTokenDuration)
	if err != nil {
		return "", "", err
	}

	tokenModel := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshTokenDuration),
	}
	if err := s.users.SaveRefreshToken(ctx, tokenModel); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// CreateTwoStepPassword enables the secondary password for an account
// that does not have one yet.
func (s *AuthService) CreateTwoStepPassword(ctx context.Context, userID uuid.UUID, newPassword, confirmPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.TwoStepPassword {
		return ErrTwoStepAlreadyEnabled
	}
	if newPassword != confirmPassword {
		return ErrPasswordsDoNotMatch
	}
	if !validation.ValidatePassword(newPassword) {
		return ErrWeakPassword
	}

	hash, err := crypto.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	return s.users.SetPassword(ctx, userID, hash, true)
}

// ChangeTwoStepPassword replaces the secondary password. The guard
// requiring the flag to be unset mirrors the original flow even though it
// contradicts the operation's name; it is kept deliberately.
func (s *AuthService) ChangeTwoStepPassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, confirmPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.TwoStepPassword {
		return ErrTwoStepAlreadyEnabled
	}
	if newPassword != confirmPassword {
		return ErrPasswordsDoNotMatch
	}
	if !validation.ValidatePassword(newPassword) {
		return ErrWeakPassword
	}

	if !crypto.CheckPassword(oldPassword, user.Password) {
		return ErrOldPasswordIncorrect
	}

	hash, err := crypto.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	return s.users.SetPassword(ctx, userID, hash, false)
}

// RefreshToken generates new access token from refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := jwtpkg.ValidateToken(refreshToken, s.cfg.JWTSecret)
	if err != nil {
		return "", errors.New("invalid refresh token")
	}

	if claims.TokenType != jwtpkg.RefreshToken {
		return "", errors.New("invalid token type")
	}

	tokenModel, err := s.users.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", errors.New("refresh token not found")
	}

	if time.Now().After(tokenModel.ExpiresAt) {
		return "", errors.New("refresh token expired")
	}

	return jwtpkg.GenerateToken(claims.UserID, jwtpkg.AccessToken, s.cfg.JWTSecret, s.cfg.JWTAccessTokenDuration)
}

// Logout invalidates all refresh tokens for the user
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.users.DeleteRefreshTokens(ctx, userID)
}

// ValidateAccessToken validates an access token and returns claims
func (s *AuthService) ValidateAccessToken(token string) (*jwtpkg.Claims, error) {
	claims, err := jwtpkg.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != jwtpkg.AccessToken {
		return nil, errors.New("invalid token type")
	}

	// If redis is down, we allow the request to proceed
	ctx := context.Background()
	blacklistKey := fmt.Sprintf("blacklist:token:%s", token)
	exists, err := s.redis.Exists(ctx, blacklistKey).Result()
	if err != nil {
		log.Printf("WARN: Could not connect to Redis to check token blacklist: %v", err)
	} else if exists > 0 {
		return nil, errors.New("token is blacklisted")
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}
