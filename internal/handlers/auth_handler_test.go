package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mehrblog/backend/internal/config"
	"github.com/mehrblog/backend/internal/models"
	"github.com/mehrblog/backend/internal/services"
)

const testPhone = "989361234567"

type fakeOtpStore struct {
	mu      sync.Mutex
	records map[string]*models.PhoneOtp
}

func newFakeOtpStore() *fakeOtpStore {
	return &fakeOtpStore{records: make(map[string]*models.PhoneOtp)}
}

func (s *fakeOtpStore) GetOrCreate(ctx context.Context, phone string) (*models.PhoneOtp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[phone]; ok {
		copied := *record
		return &copied, nil
	}
	record := &models.PhoneOtp{ID: uuid.New(), Phone: phone}
	s.records[phone] = record
	copied := *record
	return &copied, nil
}

func (s *fakeOtpStore) FindByCode(ctx context.Context, code string) (*models.PhoneOtp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.Code == code {
			copied := *record
			return &copied, nil
		}
	}
	return nil, services.ErrCodeNotFound
}

func (s *fakeOtpStore) IssueCode(ctx context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[phone]
	if !ok {
		record = &models.PhoneOtp{ID: uuid.New(), Phone: phone}
		s.records[phone] = record
	}
	if record.Count >= 5 {
		return services.ErrTooManyRequests
	}
	record.Code = code
	record.Count++
	return nil
}

func (s *fakeOtpStore) MarkVerified(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[phone]; ok {
		record.Verified = true
		record.Count = 0
	}
	return nil
}

func (s *fakeOtpStore) code(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[phone]; ok {
		return record.Code
	}
	return ""
}

type fakeUserStore struct {
	mu      sync.Mutex
	byPhone map[string]*models.User
	tokens  map[string]*models.RefreshToken
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byPhone: make(map[string]*models.User),
		tokens:  make(map[string]*models.RefreshToken),
	}
}

func (s *fakeUserStore) PhoneExists(ctx context.Context, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byPhone[phone]
	return ok, nil
}

func (s *fakeUserStore) GetOrCreateByPhone(ctx context.Context, phone string) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byPhone[phone]; ok {
		copied := *user
		return &copied, false, nil
	}
	user := &models.User{ID: uuid.New(), Phone: phone, IsActive: true, DateJoined: time.Now()}
	s.byPhone[phone] = user
	copied := *user
	return &copied, true, nil
}

func (s *fakeUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byPhone {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (s *fakeUserStore) SetPassword(ctx context.Context, id uuid.UUID, hash string, enableTwoStep bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byPhone {
		if user.ID == id {
			user.Password = hash
			if enableTwoStep {
				user.TwoStepPassword = true
			}
			return nil
		}
	}
	return services.ErrUserNotFound
}

func (s *fakeUserStore) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = token
	return nil
}

func (s *fakeUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.tokens[token]; ok {
		return stored, nil
	}
	return nil, services.ErrUserNotFound
}

func (s *fakeUserStore) DeleteRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, token := range s.tokens {
		if token.UserID == userID {
			delete(s.tokens, key)
		}
	}
	return nil
}

func (s *fakeUserStore) addUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPhone[user.Phone] = user
}

type silentNotifier struct{}

func (silentNotifier) SendVerificationCode(phone, code string) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *fakeOtpStore, *fakeUserStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		JWTSecret:               "test-secret",
		JWTAccessTokenDuration:  time.Hour,
		JWTRefreshTokenDuration: 24 * time.Hour,
		BcryptCost:              4,
	}

	otps := newFakeOtpStore()
	users := newFakeUserStore()
	authService := services.NewAuthService(otps, users, client, silentNotifier{}, cfg)
	handler := NewAuthHandler(authService)

	router := gin.New()
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.POST("/verify", handler.Verify)
	}
	return router, otps, users
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterStatusCodes(t *testing.T) {
	router, _, users := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/auth/register", gin.H{"phone": testPhone})
	if rec.Code != http.StatusCreated {
		t.Errorf("fresh phone: status = %d, want 201", rec.Code)
	}

	rec = postJSON(t, router, "/api/v1/auth/register", gin.H{"phone": "bad"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid phone: status = %d, want 400", rec.Code)
	}

	users.addUser(&models.User{ID: uuid.New(), Phone: "989129876543", IsActive: true})
	rec = postJSON(t, router, "/api/v1/auth/register", gin.H{"phone": "989129876543"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("taken phone: status = %d, want 401", rec.Code)
	}
}

func TestRegisterRateLimit(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for i := 0; i < 5; i++ {
		rec := postJSON(t, router, "/api/v1/auth/register", gin.H{"phone": testPhone})
		if rec.Code != http.StatusCreated {
			t.Fatalf("request #%d: status = %d, want 201", i+1, rec.Code)
		}
	}

	rec := postJSON(t, router, "/api/v1/auth/register", gin.H{"phone": testPhone})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("sixth request: status = %d, want 429", rec.Code)
	}
}

func TestLoginStatusCodes(t *testing.T) {
	router, _, users := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/auth/login", gin.H{"phone": "bad"})
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("invalid phone: status = %d, want 405", rec.Code)
	}

	rec = postJSON(t, router, "/api/v1/auth/login", gin.H{"phone": testPhone})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown phone: status = %d, want 401", rec.Code)
	}

	users.addUser(&models.User{ID: uuid.New(), Phone: testPhone, IsActive: true})
	rec = postJSON(t, router, "/api/v1/auth/login", gin.H{"phone": testPhone})
	if rec.Code != http.StatusOK {
		t.Errorf("known phone: status = %d, want 200", rec.Code)
	}
}

func TestVerifyStatusCodes(t *testing.T) {
	router, otps, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/v1/auth/verify", gin.H{"code": "12ab"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed code: status = %d, want 400", rec.Code)
	}

	rec = postJSON(t, router, "/api/v1/auth/verify", gin.H{"code": "000000"})
	if rec.Code != http.StatusNotAcceptable {
		t.Errorf("unknown code: status = %d, want 406", rec.Code)
	}

	rec = postJSON(t, router, "/api/v1/auth/register", gin.H{"phone": testPhone})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want 201", rec.Code)
	}

	rec = postJSON(t, router, "/api/v1/auth/verify", gin.H{"code": otps.code(testPhone)})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid code: status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Created bool   `json:"created"`
		Refresh string `json:"refresh"`
		Access  string `json:"access"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Created {
		t.Error("created = false, want true for a first verification")
	}
	if resp.Access == "" || resp.Refresh == "" {
		t.Error("expected a non-empty token pair")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		JWTSecret:               "test-secret",
		JWTAccessTokenDuration:  time.Hour,
		JWTRefreshTokenDuration: 24 * time.Hour,
	}

	otps := newFakeOtpStore()
	users := newFakeUserStore()
	authService := services.NewAuthService(otps, users, client, silentNotifier{}, cfg)
	handler := NewAuthHandler(authService)

	router := gin.New()
	router.POST("/api/v1/auth/register", handler.Register)
	router.POST("/api/v1/auth/verify", handler.Verify)

	rec := postJSON(t, router, "/api/v1/auth/register", gin.H{"phone": testPhone})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want 201", rec.Code)
	}

	mr.FastForward(301 * time.Second)

	rec = postJSON(t, router, "/api/v1/auth/verify", gin.H{"code": otps.code(testPhone)})
	if rec.Code != http.StatusRequestTimeout {
		t.Errorf("expired code: status = %d, want 408", rec.Code)
	}
}
