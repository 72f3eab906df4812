package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventario-core/internal/domain/entity"
	"github.com/tu-usuario/inventario-core/internal/domain/policy"
)

// CreateStockRequest body para POST /api/inventory/stock.
// Umbrales en cero => se aplican los por defecto del servicio.
type CreateStockRequest struct {
	ProductID    string `json:"product_id"`
	Location     string `json:"location,omitempty"`
	MinThreshold int64  `json:"min_threshold,omitempty"`
	MaxThreshold int64  `json:"max_threshold,omitempty"`
}

// RegisterMovementRequest body para POST /api/inventory/movements.
// Para IN/OUT/TRANSFER quantity es la magnitud (positiva); para ADJUST es la
// cantidad absoluta objetivo.
type RegisterMovementRequest struct {
	ProductID string           `json:"product_id"`
	Type      string           `json:"type"`
	Quantity  int64            `json:"quantity"`
	Reason    string           `json:"reason"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

// RegisterMovementResponse respuesta de un movimiento aceptado.
type RegisterMovementResponse struct {
	MovementID  int64 `json:"movement_id"`
	NewQuantity int64 `json:"new_quantity"`
}

// SetThresholdsRequest body para PUT /api/inventory/stock/:productID/thresholds.
type SetThresholdsRequest struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// StockResponse registro de stock con su clasificación y el porcentaje para
// el medidor de la UI.
type StockResponse struct {
	ProductID          string    `json:"product_id"`
	Quantity           int64     `json:"quantity"`
	Location           string    `json:"location,omitempty"`
	MinThreshold       int64     `json:"min_threshold"`
	MaxThreshold       int64     `json:"max_threshold"`
	Status             string    `json:"status"`
	PercentWithinRange float64   `json:"percent_within_range"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewStockResponse arma la respuesta clasificando con la política de umbrales.
func NewStockResponse(r *entity.StockRecord) StockResponse {
	return StockResponse{
		ProductID:          r.ProductID,
		Quantity:           r.Quantity,
		Location:           r.Location,
		MinThreshold:       r.MinThreshold,
		MaxThreshold:       r.MaxThreshold,
		Status:             string(policy.Classify(r.Quantity, r.MinThreshold, r.MaxThreshold)),
		PercentWithinRange: policy.PercentWithinRange(r.Quantity, r.MinThreshold, r.MaxThreshold),
		UpdatedAt:          r.UpdatedAt,
	}
}

// MovementResponse un registro del historial de movimientos.
type MovementResponse struct {
	ID               int64            `json:"id"`
	ProductID        string           `json:"product_id"`
	Kind             string           `json:"kind"`
	Delta            int64            `json:"delta"`
	PreviousQuantity int64            `json:"previous_quantity"`
	NewQuantity      int64            `json:"new_quantity"`
	Reason           string           `json:"reason"`
	ActorID          string           `json:"actor_id,omitempty"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}

// NewMovementResponse mapea la entidad al DTO.
func NewMovementResponse(m *entity.MovementRecord) MovementResponse {
	return MovementResponse{
		ID:               m.ID,
		ProductID:        m.ProductID,
		Kind:             m.Kind,
		Delta:            m.Delta,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Reason:           m.Reason,
		ActorID:          m.ActorID,
		UnitCost:         m.UnitCost,
		Timestamp:        m.Timestamp,
	}
}
