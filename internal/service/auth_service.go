package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/apperror"
	"github.com/Aphatheology/future-stack-assessment/internal/domain"
	"github.com/Aphatheology/future-stack-assessment/internal/identifier"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

var (
	ErrInvalidCredentials = apperror.Unauthorized("Incorrect email or password")
	ErrInvalidToken       = apperror.Unauthorized("Invalid refresh token")
)

// AuthTokens bundles the token pair issued on register, login and
// refresh.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
}

// AccessClaims represents the access token JWT claims
type AccessClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the refresh token JWT claims; each refresh
// token is bound to a stored user session.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, *AuthTokens, error)
	Login(ctx context.Context, email, password string) (*domain.User, *AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.User, *AuthTokens, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
	ValidateAccessToken(ctx context.Context, tokenString string) (*AccessClaims, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	blacklist     *TokenBlacklist
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	blacklist *TokenBlacklist,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		blacklist:     blacklist,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Register creates a new user account with a hashed password and opens
// a first session
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, *AuthTokens, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, nil, apperror.BadRequest("Email already registered")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           identifier.Generate(identifier.PrefixUser),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedBytes),
		Role:         "user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, nil, apperror.BadRequest("Email already registered")
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

// Login authenticates a user and opens a new session
func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, *AuthTokens, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

// Refresh rotates a refresh token: the presented session is
// soft-deleted and a new session with a fresh token pair is opened
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *AuthTokens, error) {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	session, err := s.sessionRepo.FindActive(ctx, claims.SessionID, claims.UserID, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("failed to find session: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.sessionRepo.SoftDelete(ctx, session.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

// Logout soft-deletes the session behind the refresh token and
// blacklists the presented access token for its remaining lifetime
func (s *authService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}

	session, err := s.sessionRepo.FindActive(ctx, claims.SessionID, claims.UserID, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to find session: %w", err)
	}

	if err := s.sessionRepo.SoftDelete(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if accessToken != "" {
		if accessClaims, err := s.parseAccessToken(accessToken); err == nil {
			s.blacklist.Add(ctx, accessToken, accessClaims.ExpiresAt.Time)
		}
	}

	return nil
}

// ValidateAccessToken validates an access token and checks it against
// the revocation blacklist
func (s *authService) ValidateAccessToken(ctx context.Context, tokenString string) (*AccessClaims, error) {
	claims, err := s.parseAccessToken(tokenString)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid token")
	}

	if s.blacklist.IsBlacklisted(ctx, tokenString) {
		return nil, apperror.Unauthorized("Token has been revoked")
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *authService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// openSession stores a new session row and returns its token pair
func (s *authService) openSession(ctx context.Context, user *domain.User) (*AuthTokens, error) {
	sessionID := identifier.Generate(identifier.PrefixUserSession)
	now := time.Now()
	expiresAt := now.Add(s.refreshExpiry)

	refreshToken, err := s.signRefreshToken(user.ID, sessionID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &domain.UserSession{
		ID:           sessionID,
		UserID:       user.ID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) signAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) signRefreshToken(userID, sessionID string, expiresAt time.Time) (string, error) {
	claims := &RefreshClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) parseAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, s.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

func (s *authService) parseRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, s.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

func (s *authService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(s.jwtSecret), nil
}
