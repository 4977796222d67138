package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/models"
	"github.com/jthurman/localhive/internal/services"
	pkgauth "github.com/jthurman/localhive/pkg/auth"
	pkghttp "github.com/jthurman/localhive/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	VerifySecondFactor(ctx context.Context, challengeID, code, ipAddress, userAgent string) (*services.LoginResult, error)
	Register(ctx context.Context, email, password, name string) (*services.UserResponse, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error)
	CurrentUser(ctx context.Context, userID string) (*services.UserResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service    AuthServiceInterface
	ipConfig   *pkghttp.IPConfig
	cookieCfg  auth.CookieConfig
	sessionTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, cookieCfg auth.CookieConfig, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:    service,
		ipConfig:   ipConfig,
		cookieCfg:  cookieCfg,
		sessionTTL: sessionTTL,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyLoginRequest represents the request body for second-factor verification
type VerifyLoginRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required,uuid4"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// LoginResponse represents the response for the first factor
type LoginResponse struct {
	RequiresSecondFactor bool                   `json:"requires_second_factor"`
	ChallengeID          string                 `json:"challenge_id,omitempty"`
	ChallengeExpiresAt   string                 `json:"challenge_expires_at,omitempty"`
	User                 *services.UserResponse `json:"user,omitempty"`
}

// writeAuthError maps domain errors to the machine-readable codes the UI
// renders countdowns from
func writeAuthError(w http.ResponseWriter, err error) {
	var retryable *models.RetryAfterError
	retryAfter := time.Duration(0)
	if errors.As(err, &retryable) {
		retryAfter = retryable.RetryAfter
	}

	switch {
	case errors.Is(err, models.ErrIPRateLimited):
		pkghttp.WriteErrorWithRetry(w, http.StatusTooManyRequests, "IP_RATE_LIMIT",
			"Too many failed attempts from this address. Please try again later.", retryAfter)
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteErrorWithRetry(w, http.StatusTooManyRequests, "ACCOUNT_LOCKED",
			"This account is temporarily locked. Please try again later.", retryAfter)
	case errors.Is(err, models.ErrEmailRateLimited):
		pkghttp.WriteError(w, http.StatusTooManyRequests, "EMAIL_RATE_LIMIT",
			"Too many failed attempts. Please try again later.")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS",
			"Invalid email or password")
	case errors.Is(err, models.ErrTOTPInvalidCode):
		pkghttp.WriteError(w, http.StatusUnauthorized, "INVALID_TOTP",
			"Invalid verification code")
	case errors.Is(err, models.ErrChallengeNotFound):
		pkghttp.WriteError(w, http.StatusNotFound, "CHALLENGE_NOT_FOUND",
			"Login challenge not found. Please sign in again.")
	case errors.Is(err, models.ErrChallengeUsed):
		pkghttp.WriteError(w, http.StatusConflict, "CHALLENGE_USED",
			"Login challenge already used. Please sign in again.")
	case errors.Is(err, models.ErrChallengeExpired):
		pkghttp.WriteError(w, http.StatusGone, "CHALLENGE_EXPIRED",
			"Login challenge expired. Please sign in again.")
	case errors.Is(err, models.ErrTOTPNotConfigured):
		pkghttp.WriteError(w, http.StatusConflict, "TOTP_NOT_CONFIGURED",
			"Two-factor authentication is not set up for this account")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "An account with this email already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		var pwErr *pkgauth.PasswordValidationError
		if errors.As(err, &pwErr) {
			pkghttp.WriteBadRequest(w, pwErr.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Login handles the first authentication factor
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	// Shape validation happens before any guard or store is touched
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	result, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	if result.RequiresSecondFactor {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(LoginResponse{
			RequiresSecondFactor: true,
			ChallengeID:          result.ChallengeID,
			ChallengeExpiresAt:   result.ChallengeExpiresAt.UTC().Format(time.RFC3339),
		})
		return
	}

	auth.SetSessionCookie(w, result.Token, h.sessionTTL, h.cookieCfg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{
		RequiresSecondFactor: false,
		User:                 result.User,
	})
}

// VerifyLogin completes a pending second-factor challenge
func (h *AuthHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req VerifyLoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	result, err := h.service.VerifySecondFactor(r.Context(), req.ChallengeID, req.Code, ipAddress, userAgent)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.sessionTTL, h.cookieCfg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{
		RequiresSecondFactor: false,
		User:                 result.User,
	})
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Logout discards the client-held session cookie. The token itself stays
// valid until expiry; statelessness is the deliberate trade-off.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieCfg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// ChangePassword verifies the current password and installs a new one,
// replacing the session cookie with a freshly issued token
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	token, err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	auth.SetSessionCookie(w, token, h.sessionTTL, h.cookieCfg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(user)
}

// Session reports the current identity, or authenticated=false for anonymous
// callers. Mounted behind the optional gate.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if claims == nil {
		json.NewEncoder(w).Encode(map[string]bool{"authenticated": false})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": true,
		"user_id":       claims.UserID,
		"email":         claims.Email,
	})
}
