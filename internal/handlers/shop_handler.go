package handlers

import (
	"time"

	"shopfront/internal/events"
	"shopfront/internal/realtime"
	"shopfront/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// ShopHandler serves the storefront: catalog reads, purchases and live size
// updates.
type ShopHandler struct {
	products  *services.ProductService
	inventory *services.InventoryService
	hub       *realtime.Hub
	logger    *zap.Logger
}

// NewShopHandler creates a new ShopHandler. The live endpoint is only
// mounted when hub is not nil.
func NewShopHandler(products *services.ProductService, inventory *services.InventoryService, hub *realtime.Hub, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{
		products:  products,
		inventory: inventory,
		hub:       hub,
		logger:    logger,
	}
}

// RegisterRoutes registers the storefront routes under router.
func (h *ShopHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/get", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Get("/:id/sizes", h.HandleGetSizes)
	productRoutes.Post("/:id/purchase", h.HandlePurchase)
	if h.hub != nil {
		productRoutes.Get("/:id/sizes/live", h.requireUpgrade, websocket.New(h.HandleLiveSizes))
	}
}

// HandleGetProducts lists the whole catalog.
func (h *ShopHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.products.GetAllProducts(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch products")
	}
	return respondOK(c, fiber.StatusOK, "", products)
}

// HandleGetProduct returns one product.
func (h *ShopHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.products.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch product")
	}
	return respondOK(c, fiber.StatusOK, "", product)
}

// HandleGetSizes returns the current size list of a product.
func (h *ShopHandler) HandleGetSizes(c *fiber.Ctx) error {
	sizes, err := h.inventory.ListSizes(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch sizes")
	}
	return respondOK(c, fiber.StatusOK, "", sizes)
}

// PurchaseRequest represents the request body for a purchase.
type PurchaseRequest struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// HandlePurchase buys quantity units of one size.
func (h *ShopHandler) HandlePurchase(c *fiber.Ctx) error {
	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, h.logger, err)
	}

	product, err := h.inventory.Purchase(c.UserContext(), c.Params("id"), req.Size, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err, "Purchase failed")
	}
	return respondOK(c, fiber.StatusOK, "Purchase successful", product)
}

// requireUpgrade rejects plain HTTP requests and unknown products before the
// websocket handshake.
func (h *ShopHandler) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := h.inventory.ListSizes(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.logger, err, "Failed to subscribe")
	}
	return c.Next()
}

// HandleLiveSizes streams the product's size updates until the client goes
// away.
func (h *ShopHandler) HandleLiveSizes(conn *websocket.Conn) {
	productID := conn.Params("id")
	sub := h.hub.Subscribe(events.Topic(productID))
	defer func() {
		h.hub.Unsubscribe(sub)
		h.logger.Debug("Live subscriber disconnected",
			zap.String("topic", sub.Topic()),
			zap.Int64("dropped", sub.Dropped()),
		)
	}()

	h.logger.Debug("Live subscriber connected", zap.String("topic", sub.Topic()))

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case frame, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debug("Live subscriber write failed", zap.String("product_id", productID), zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
