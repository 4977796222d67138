package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jthurman/localhive/internal/handlers"
	"github.com/jthurman/localhive/internal/models"
	"github.com/jthurman/localhive/internal/services"
)

func TestTOTPSetup(t *testing.T) {
	t.Run("returns provisioning material", func(t *testing.T) {
		mock := &handlers.MockTOTPService{
			SetupFunc: func(ctx context.Context, userID string) (*services.SetupResponse, error) {
				return &services.SetupResponse{
					Secret:          "JBSWY3DPEHPK3PXP",
					ProvisioningURI: "otpauth://totp/localhive:user@example.com",
					QRCode:          "data:image/png;base64,xxx",
				}, nil
			},
		}
		handler := handlers.NewTOTPHandler(mock)

		req := handlers.NewTestRequest(t, "POST", "/auth/totp/setup", nil)
		req = handlers.WithAuthContext(req, "user-123", "user@example.com")

		w := httptest.NewRecorder()
		handler.Setup(w, req)

		var resp services.SetupResponse
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.Equal(t, "JBSWY3DPEHPK3PXP", resp.Secret)
		assert.NotEmpty(t, resp.ProvisioningURI)
		assert.NotEmpty(t, resp.QRCode)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		handler := handlers.NewTOTPHandler(&handlers.MockTOTPService{})
		req := handlers.NewTestRequest(t, "POST", "/auth/totp/setup", nil)

		w := httptest.NewRecorder()
		handler.Setup(w, req)
		assert.Equal(t, 401, w.Code)
	})
}

func TestTOTPEnable(t *testing.T) {
	t.Run("valid code", func(t *testing.T) {
		mock := &handlers.MockTOTPService{
			EnableFunc: func(ctx context.Context, userID, code string) error {
				assert.Equal(t, "123456", code)
				return nil
			},
		}
		handler := handlers.NewTOTPHandler(mock)

		req := handlers.NewTestRequest(t, "POST", "/auth/totp/enable", handlers.EnableTOTPRequest{Code: "123456"})
		req = handlers.WithAuthContext(req, "user-123", "user@example.com")

		w := httptest.NewRecorder()
		handler.Enable(w, req)

		var resp map[string]bool
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.True(t, resp["enabled"])
	})

	t.Run("wrong code", func(t *testing.T) {
		mock := &handlers.MockTOTPService{
			EnableFunc: func(ctx context.Context, userID, code string) error {
				return models.ErrTOTPInvalidCode
			},
		}
		handler := handlers.NewTOTPHandler(mock)

		req := handlers.NewTestRequest(t, "POST", "/auth/totp/enable", handlers.EnableTOTPRequest{Code: "654321"})
		req = handlers.WithAuthContext(req, "user-123", "user@example.com")

		w := httptest.NewRecorder()
		handler.Enable(w, req)
		handlers.AssertErrorResponse(t, w, 401, "INVALID_TOTP")
	})

	t.Run("malformed code", func(t *testing.T) {
		handler := handlers.NewTOTPHandler(&handlers.MockTOTPService{
			EnableFunc: func(ctx context.Context, userID, code string) error {
				t.Fatal("service must not be called for malformed input")
				return nil
			},
		})

		req := handlers.NewTestRequest(t, "POST", "/auth/totp/enable", handlers.EnableTOTPRequest{Code: "12ab56"})
		req = handlers.WithAuthContext(req, "user-123", "user@example.com")

		w := httptest.NewRecorder()
		handler.Enable(w, req)
		assert.Equal(t, 400, w.Code)
	})
}

func TestTOTPDisable(t *testing.T) {
	t.Run("with password", func(t *testing.T) {
		mock := &handlers.MockTOTPService{
			DisableFunc: func(ctx context.Context, userID, password, code string) error {
				assert.Equal(t, "Sup3rSecret", password)
				assert.Empty(t, code)
				return nil
			},
		}
		handler := handlers.NewTOTPHandler(mock)

		req := handlers.NewTestRequest(t, "POST", "/auth/totp/disable", handlers.DisableTOTPRequest{Password: "Sup3rSecret"})
		req = handlers.WithAuthContext(req, "user-123", "user@example.com")

		w := httptest.NewRecorder()
		handler.Disable(w, req)

		var resp map[string]bool
		handlers.AssertJSONResponse(t, w, 200, &resp)
		assert.False(t, resp["enabled"])
	})

	t.Run("without re-authentication", func(t *testing.T) {
		mock := &handlers.MockTOTPService{
			DisableFunc: func(ctx context.Context, userID, password, code string) error {
				return models.ErrUnauthorized
			},
		}
		handler := handlers.NewTOTPHandler(mock)

		req := handlers.NewTestRequest(t, "POST", "/auth/totp/disable", handlers.DisableTOTPRequest{})
		req = handlers.WithAuthContext(req, "user-123", "user@example.com")

		w := httptest.NewRecorder()
		handler.Disable(w, req)
		assert.Equal(t, 401, w.Code)
	})
}
