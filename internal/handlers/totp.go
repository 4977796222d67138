package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/services"
	pkghttp "github.com/jthurman/localhive/pkg/http"
)

// TOTPServiceInterface defines the interface for second-factor lifecycle logic
type TOTPServiceInterface interface {
	Setup(ctx context.Context, userID string) (*services.SetupResponse, error)
	Enable(ctx context.Context, userID, code string) error
	Disable(ctx context.Context, userID, password, code string) error
}

// TOTPHandler handles second-factor lifecycle HTTP requests
type TOTPHandler struct {
	service TOTPServiceInterface
}

// NewTOTPHandler creates a new TOTPHandler
func NewTOTPHandler(service TOTPServiceInterface) *TOTPHandler {
	return &TOTPHandler{service: service}
}

// EnableTOTPRequest represents the request body for enabling the second factor
type EnableTOTPRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// DisableTOTPRequest represents the request body for disabling the second
// factor; the caller proves possession of either credential
type DisableTOTPRequest struct {
	Password string `json:"password" validate:"omitempty"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
}

// Setup provisions a fresh secret and returns the one-time setup material
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.Setup(r.Context(), claims.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Enable activates the pending secret once the caller proves they hold it
func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req EnableTOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Enable(r.Context(), claims.UserID, req.Code); err != nil {
		writeAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"enabled": true})
}

// Disable turns the second factor off after re-authentication
func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req DisableTOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Disable(r.Context(), claims.UserID, req.Password, req.Code); err != nil {
		writeAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"enabled": false})
}
