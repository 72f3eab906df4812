package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/inventario-core/internal/application/dto"
	"github.com/tu-usuario/inventario-core/internal/application/inventory"
	"github.com/tu-usuario/inventario-core/internal/domain"
)

// InventoryHandler maneja las peticiones HTTP del núcleo de inventario (protegido).
type InventoryHandler struct {
	svc *inventory.Service
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(svc *inventory.Service) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// CreateStock godoc
// @Summary      Dar de alta el stock de un producto
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStockRequest  true  "product_id, location, min_threshold, max_threshold (0/0 = por defecto)"
// @Success      201   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/stock [post]
func (h *InventoryHandler) CreateStock(c *fiber.Ctx) error {
	var in dto.CreateStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	record, err := h.svc.CreateStock(c.Context(), in.ProductID, in.Location, in.MinThreshold, in.MaxThreshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewStockResponse(record))
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  IN suma, OUT/TRANSFER restan (rechazado si dejaría el stock
//
//	negativo), ADJUST fija la cantidad absoluta. reason es obligatorio;
//	el actor sale del token.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type (IN|OUT|ADJUST|TRANSFER), quantity, reason, unit_cost (opcional)"
// @Success      201   {object}  dto.RegisterMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	actorID := GetActorID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	movement, err := h.svc.RecordMovement(c.Context(), inventory.MovementInput{
		ProductID: in.ProductID,
		Kind:      in.Type,
		Magnitude: in.Quantity,
		Reason:    in.Reason,
		ActorID:   actorID,
		UnitCost:  in.UnitCost,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.RegisterMovementResponse{
		MovementID:  movement.ID,
		NewQuantity: movement.NewQuantity,
	})
}

// GetStock godoc
// @Summary      Stock actual de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        productID  path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{productID} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	record, err := h.svc.GetStock(c.Context(), c.Params("productID"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewStockResponse(record))
}

// ListLowStock godoc
// @Summary      Productos clasificados LOW
// @Description  Lectura que sondea el subsistema de notificaciones para
//
//	sintetizar alertas de stock bajo.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *fiber.Ctx) error {
	records, err := h.svc.ListLowStock(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.StockResponse, 0, len(records))
	for _, r := range records {
		items = append(items, dto.NewStockResponse(r))
	}
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}

// History godoc
// @Summary      Historial de movimientos de un producto
// @Description  Más reciente primero; orden total (timestamp, id).
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        productID  path   string  true   "ID del producto"
// @Param        limit      query  int     false  "máximo de registros (por defecto 20)"
// @Param        offset     query  int     false  "desplazamiento"
// @Success      200  {object}  map[string]any
// @Router       /api/inventory/movements/{productID} [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	movements, err := h.svc.History(c.Context(), c.Params("productID"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		items = append(items, dto.NewMovementResponse(m))
	}
	// count es el tamaño de la página devuelta, no el total del historial.
	return c.JSON(fiber.Map{
		"count": len(items),
		"items": items,
	})
}

// SetThresholds godoc
// @Summary      Actualizar umbrales min/max de un producto
// @Description  Solo configuración: no genera entrada en el ledger.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        productID  path  string                    true  "ID del producto"
// @Param        body       body  dto.SetThresholdsRequest  true  "min, max (0 <= min < max)"
// @Success      200  {object}  dto.StockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{productID}/thresholds [put]
func (h *InventoryHandler) SetThresholds(c *fiber.Ctx) error {
	var in dto.SetThresholdsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	record, err := h.svc.AdjustThresholds(c.Context(), c.Params("productID"), in.Min, in.Max)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewStockResponse(record))
}

// writeError mapea la taxonomía de errores del dominio a códigos HTTP estables.
// ErrDegraded se responde 500 sin invitar al reintento: la alerta de operador
// ya quedó loggeada por el servicio.
func writeError(c *fiber.Ctx, err error) error {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto sin registro de stock"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el producto ya tiene registro de stock"})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "INSUFFICIENT_STOCK",
			Message: fmt.Sprintf("stock insuficiente: solicitado %d, disponible %d",
				insufficient.Requested, insufficient.Available),
		})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrConcurrentModification):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENT_MODIFICATION", Message: "demasiadas escrituras concurrentes; releer y reintentar"})
	case errors.Is(err, domain.ErrDegraded):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "DEGRADED", Message: "inconsistencia detectada; el equipo de operación fue alertado"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
