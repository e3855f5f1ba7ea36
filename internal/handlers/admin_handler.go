package handlers

import (
	"shopfront/internal/events"
	"shopfront/internal/middleware"
	"shopfront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles catalog management and stock overrides.
type AdminHandler struct {
	products  *services.ProductService
	inventory *services.InventoryService
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(products *services.ProductService, inventory *services.InventoryService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		products:  products,
		inventory: inventory,
		logger:    logger,
	}
}

// RegisterRoutes registers the admin routes under router.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/add-products", h.HandleCreateProduct)
	router.Put("/update-product/:id", h.HandleUpdateProduct)
	router.Delete("/delete-product/:id", h.HandleDeleteProduct)
	router.Put("/products/:id/sizes", h.HandleSetSizeQuantity)
}

// HandleCreateProduct adds a product to the catalog.
func (h *AdminHandler) HandleCreateProduct(c *fiber.Ctx) error {
	middleware.SetAction(c, "Added a product")

	var input services.CreateProductInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, h.logger, err)
	}

	product, err := h.products.CreateProduct(c.UserContext(), input)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to add product")
	}
	return respondOK(c, fiber.StatusCreated, "Product added successfully", product)
}

// HandleUpdateProduct applies a partial update to a product.
func (h *AdminHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	middleware.SetAction(c, "Updated a product")

	var input services.UpdateProductInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, h.logger, err)
	}

	product, err := h.products.UpdateProduct(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update product")
	}
	return respondOK(c, fiber.StatusOK, "Product updated successfully", product)
}

// HandleDeleteProduct removes a product.
func (h *AdminHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	middleware.SetAction(c, "Deleted a product")

	if err := h.products.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.logger, err, "Failed to delete product")
	}
	return respondOK(c, fiber.StatusOK, "Product deleted successfully", nil)
}

// SetSizeRequest represents the request body of a stock override.
type SetSizeRequest struct {
	SizeName string `json:"sizeName"`
	Quantity *int   `json:"quantity"`
}

// HandleSetSizeQuantity overwrites the stock of one size.
func (h *AdminHandler) HandleSetSizeQuantity(c *fiber.Ctx) error {
	middleware.SetAction(c, "Updated size quantity")

	var req SetSizeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}
	if req.Quantity == nil {
		return respondError(c, h.logger, &services.ValidationError{
			Message: "sizeName and quantity are required",
			Fields:  map[string]string{"quantity": "quantity is required"},
		}, "Invalid size update")
	}

	product, err := h.inventory.SetSizeQuantity(c.UserContext(), c.Params("id"), req.SizeName, *req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update size quantity")
	}

	update := events.SizesUpdate{ProductID: product.ID, Sizes: product.Sizes}
	if idx := product.FindSize(req.SizeName); idx >= 0 {
		update.UpdatedSize = events.UpdatedSize{Name: product.Sizes[idx].Name, Quantity: product.Sizes[idx].Quantity}
	}
	return respondOK(c, fiber.StatusOK, "Size quantity updated", update)
}
