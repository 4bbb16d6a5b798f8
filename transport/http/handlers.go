package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cleardesk/walletauth/core"
	"github.com/cleardesk/walletauth/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{authService: authService, logger: logger}
}

// Challenge issues a sign-in challenge for a wallet address.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, err := h.authService.CreateChallenge(req.Address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		h.logger.Error("failed to create challenge", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id": challenge.ID,
		"address":      challenge.Address,
		"message":      challenge.Message,
		"nonce":        challenge.Nonce,
		"issued_at":    challenge.IssuedAt.Format(time.RFC3339),
		"expires_at":   challenge.ExpiresAt.Format(time.RFC3339),
	})
}

// Login verifies a signed challenge and establishes a session.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Nonce     string `json:"nonce" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Message, req.Signature, req.Nonce)
	if err != nil {
		status, msg := loginErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("login failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.Token,
		"token_type": "Bearer",
		"expires_at": result.Session.ExpiresAt.Format(time.RFC3339),
		"address":    result.Session.Address,
		"profile": gin.H{
			"id":           result.Profile.ID,
			"address":      result.Profile.Address,
			"display_name": result.Profile.DisplayName,
			"is_public":    result.Profile.IsPublic,
		},
	})
}

// loginErrorResponse maps a login failure to a status code and a message
// that tells the user which remedy applies: re-sign, or retry shortly.
func loginErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMalformedMessage), errors.Is(err, core.ErrInvalidAddress):
		return http.StatusBadRequest, "Invalid sign-in message"
	case errors.Is(err, core.ErrChallengeExpired):
		return http.StatusUnauthorized, "Challenge expired - please request a new one and sign again"
	case errors.Is(err, core.ErrChallengeUsed):
		return http.StatusUnauthorized, "Challenge already used - please request a new one and sign again"
	case errors.Is(err, core.ErrSignatureMismatch):
		return http.StatusUnauthorized, "Signature did not match - please sign again"
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "We couldn't save your session - try again shortly"
	default:
		return http.StatusInternalServerError, "We couldn't save your session - try again shortly"
	}
}

// Logout deletes the sessions for the authenticated address.
func (h *AuthHandlers) Logout(c *gin.Context) {
	address := c.GetString(ContextAddressKey)
	if address == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), address); err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Try again shortly"})
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandlers) Me(c *gin.Context) {
	address := c.GetString(ContextAddressKey)
	if address == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	profile, err := h.authService.Profile(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("failed to load profile", zap.String("address", address), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":      profile.Address,
		"display_name": profile.DisplayName,
		"is_public":    profile.IsPublic,
	})
}

// Authorize reports whether the caller is authenticated. The middleware has
// already validated the token by the time this runs; it exists as a thin
// compatibility alias for callers that only need a yes/no.
func (h *AuthHandlers) Authorize(c *gin.Context) {
	address := c.GetString(ContextAddressKey)
	if address == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    address,
	})
}

// Healthz is a liveness probe.
func (h *AuthHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
