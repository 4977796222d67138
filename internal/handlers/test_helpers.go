package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/models"
	"github.com/jthurman/localhive/internal/services"
	pkghttp "github.com/jthurman/localhive/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds session claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.SessionClaims{
		UserID: userID,
		Email:  email,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc              func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	VerifySecondFactorFunc func(ctx context.Context, challengeID, code, ipAddress, userAgent string) (*services.LoginResult, error)
	RegisterFunc           func(ctx context.Context, email, password, name string) (*services.UserResponse, error)
	ChangePasswordFunc     func(ctx context.Context, userID, currentPassword, newPassword string) (string, error)
	CurrentUserFunc        func(ctx context.Context, userID string) (*services.UserResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
}

func (m *MockAuthService) VerifySecondFactor(ctx context.Context, challengeID, code, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.VerifySecondFactorFunc == nil {
		return nil, models.ErrChallengeNotFound
	}
	return m.VerifySecondFactorFunc(ctx, challengeID, code, ipAddress, userAgent)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*services.UserResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password, name)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error) {
	if m.ChangePasswordFunc == nil {
		return "", models.ErrUnauthorized
	}
	return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
}

func (m *MockAuthService) CurrentUser(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.CurrentUserFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.CurrentUserFunc(ctx, userID)
}

// MockTOTPService implements TOTPServiceInterface for testing
type MockTOTPService struct {
	SetupFunc   func(ctx context.Context, userID string) (*services.SetupResponse, error)
	EnableFunc  func(ctx context.Context, userID, code string) error
	DisableFunc func(ctx context.Context, userID, password, code string) error
}

func (m *MockTOTPService) Setup(ctx context.Context, userID string) (*services.SetupResponse, error) {
	if m.SetupFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.SetupFunc(ctx, userID)
}

func (m *MockTOTPService) Enable(ctx context.Context, userID, code string) error {
	if m.EnableFunc == nil {
		return models.ErrTOTPNotConfigured
	}
	return m.EnableFunc(ctx, userID, code)
}

func (m *MockTOTPService) Disable(ctx context.Context, userID, password, code string) error {
	if m.DisableFunc == nil {
		return models.ErrTOTPNotConfigured
	}
	return m.DisableFunc(ctx, userID, password, code)
}
