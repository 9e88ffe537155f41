package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Aphatheology/future-stack-assessment/internal/apperror"
	"github.com/Aphatheology/future-stack-assessment/internal/domain"
	"github.com/Aphatheology/future-stack-assessment/internal/middleware"
	"github.com/Aphatheology/future-stack-assessment/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse carries tokens and the authenticated user's profile
type AuthResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         UserProfile `json:"user"`
}

// UserProfile represents user profile data
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserProfile(user *domain.User) UserProfile {
	return UserProfile{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

// AuthHandler handles HTTP requests for authentication operations
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers all authentication routes. Credential
// endpoints carry a stricter rate limit than the rest of the API.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware, authLimiter func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		// Public routes
		r.With(authLimiter).Post("/register", h.Register)
		r.With(authLimiter).Post("/login", h.Login)
		r.With(authLimiter).Post("/refresh", h.Refresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
		})
	})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, tokens, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			h.logger.Debug("Registration rejected", zap.Error(err))
			middleware.RespondWithAppError(w, err)
			return
		}

		h.logger.Error("Registration failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	response := AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         toUserProfile(user),
	}

	h.logger.Info("User registered successfully", zap.String("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, response)
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, tokens, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			h.logger.Debug("Login rejected", zap.Error(err))
			middleware.RespondWithAppError(w, err)
			return
		}

		h.logger.Error("Login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	response := AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         toUserProfile(user),
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// Refresh handles token refresh. The presented refresh token's session
// is retired and a new session is opened in its place.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Refresh token validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			h.logger.Debug("Token refresh rejected", zap.Error(err))
			middleware.RespondWithAppError(w, err)
			return
		}

		h.logger.Error("Token refresh failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	response := AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         toUserProfile(user),
	}

	h.logger.Info("Token refreshed successfully", zap.String("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Logout decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accessToken, _ := middleware.GetAccessToken(r.Context())

	if err := h.authService.Logout(r.Context(), req.RefreshToken, accessToken); err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			middleware.RespondWithAppError(w, err)
			return
		}

		h.logger.Error("Logout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	h.logger.Info("User logged out successfully")
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// GetProfile handles getting the authenticated user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			middleware.RespondWithAppError(w, err)
			return
		}

		h.logger.Error("Failed to get user profile", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get user profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toUserProfile(user))
}
