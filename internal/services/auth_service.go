package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/models"
	"shopfront/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Claims is the JWT payload issued on login and registration.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo     repositories.UserRepository
	jwtSecret    []byte
	tokenTTL     time.Duration // Duration for which JWT is valid
	storeTimeout time.Duration
}

// NewAuthService creates a new AuthService. A zero tokenTTL falls back to
// 24 hours.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL, storeTimeout time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &AuthService{
		userRepo:     userRepo,
		jwtSecret:    []byte(jwtSecret),
		tokenTTL:     tokenTTL,
		storeTimeout: storeTimeout,
	}
}

// RegisterUser creates an account with a hashed password and returns it
// together with a fresh token.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	input.Email = normalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	if err := validateInput(input, "Please provide full name, email and password"); err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, "", fmt.Errorf("user already exists: %w", ErrConflict)
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, "", storeError(fmt.Errorf("failed to look up user: %w", err))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FullName: input.FullName,
		Email:    input.Email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, "", fmt.Errorf("user already exists: %w", ErrConflict)
		}
		return nil, "", storeError(fmt.Errorf("failed to register user: %w", err))
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, input LoginInput) (*models.User, string, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input, "Please provide email and password"); err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Unknown email and wrong password look the same to the caller.
			return nil, "", fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return nil, "", storeError(fmt.Errorf("failed to look up user: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, "", fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v: %w", err, ErrUnauthorized)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}
	return claims, nil
}

// GetProfile returns the user behind a validated token.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, storeError(fmt.Errorf("failed to load profile: %w", err))
	}
	return user, nil
}

func (s *AuthService) issueToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
