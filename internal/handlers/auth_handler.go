package handlers

import (
	"errors"

	"shopfront/internal/middleware"
	"shopfront/internal/models"
	"shopfront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/profile", middleware.AuthRequired(h.authService, h.logger), h.HandleProfile)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, h.logger, err)
	}

	user, token, err := h.authService.RegisterUser(c.UserContext(), input)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return c.Status(fiber.StatusBadRequest).JSON(models.Response{
				Success: false,
				Message: "User already exists",
			})
		}
		return respondError(c, h.logger, err, "Could not register user")
	}

	return respondOK(c, fiber.StatusCreated, "User registered successfully", models.LoginResponse{Token: token, User: *user})
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, h.logger, err)
	}

	user, token, err := h.authService.LoginUser(c.UserContext(), input)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(models.Response{
				Success: false,
				Message: "Invalid credentials",
			})
		}
		return respondError(c, h.logger, err, "Login failed")
	}

	return respondOK(c, fiber.StatusOK, "Login successful", models.LoginResponse{Token: token, User: *user})
}

// HandleProfile returns the authenticated user.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	user, err := h.authService.GetProfile(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to load profile")
	}
	return respondOK(c, fiber.StatusOK, "", user)
}
