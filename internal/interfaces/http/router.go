package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/inventario-core/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Inventory *inventory.Service
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	invGroup := protected.Group("/inventory")
	handler := NewInventoryHandler(deps.Inventory)
	invGroup.Post("/stock", handler.CreateStock)
	invGroup.Get("/stock/:productID", handler.GetStock)
	invGroup.Put("/stock/:productID/thresholds", handler.SetThresholds)
	invGroup.Post("/movements", handler.RegisterMovement)
	invGroup.Get("/movements/:productID", handler.History)
	invGroup.Get("/low-stock", handler.ListLowStock)
}
