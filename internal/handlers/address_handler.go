package handlers

import (
	"shopfront/internal/middleware"
	"shopfront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AddressHandler serves the authenticated user's address book.
type AddressHandler struct {
	service *services.AddressService
	logger  *zap.Logger
}

// NewAddressHandler creates a new AddressHandler.
func NewAddressHandler(service *services.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{service: service, logger: logger}
}

// RegisterRoutes registers the address routes. router must already require
// authentication.
func (h *AddressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleList)
	router.Post("/", h.HandleCreate)
	router.Get("/default", h.HandleGetDefault)
	router.Put("/:id", h.HandleUpdate)
	router.Patch("/:id/set-default", h.HandleSetDefault)
	router.Delete("/:id", h.HandleDelete)
}

// HandleList lists the user's addresses.
func (h *AddressHandler) HandleList(c *fiber.Ctx) error {
	addresses, err := h.service.ListAddresses(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch addresses")
	}
	return respondOK(c, fiber.StatusOK, "", addresses)
}

// HandleCreate adds an address.
func (h *AddressHandler) HandleCreate(c *fiber.Ctx) error {
	var input services.AddressInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, h.logger, err)
	}

	address, err := h.service.AddAddress(c.UserContext(), middleware.CurrentUserID(c), input)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to add address")
	}
	return respondOK(c, fiber.StatusCreated, "Address added successfully", address)
}

// HandleUpdate applies a partial update to an address.
func (h *AddressHandler) HandleUpdate(c *fiber.Ctx) error {
	var input services.AddressUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, h.logger, err)
	}

	address, err := h.service.UpdateAddress(c.UserContext(), middleware.CurrentUserID(c), c.Params("id"), input)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update address")
	}
	return respondOK(c, fiber.StatusOK, "Address updated successfully", address)
}

// HandleSetDefault makes an address the user's default.
func (h *AddressHandler) HandleSetDefault(c *fiber.Ctx) error {
	address, err := h.service.SetDefaultAddress(c.UserContext(), middleware.CurrentUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to set default address")
	}
	return respondOK(c, fiber.StatusOK, "Default address updated", address)
}

// HandleGetDefault returns the user's default address.
func (h *AddressHandler) HandleGetDefault(c *fiber.Ctx) error {
	address, err := h.service.GetDefaultAddress(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "No default address found")
	}
	return respondOK(c, fiber.StatusOK, "", address)
}

// HandleDelete removes an address.
func (h *AddressHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.DeleteAddress(c.UserContext(), middleware.CurrentUserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err, "Failed to delete address")
	}
	return respondOK(c, fiber.StatusOK, "Address deleted successfully", nil)
}
