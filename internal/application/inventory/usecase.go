package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventario-core/internal/domain"
	"github.com/tu-usuario/inventario-core/internal/domain/entity"
	"github.com/tu-usuario/inventario-core/internal/domain/policy"
	"github.com/tu-usuario/inventario-core/internal/domain/repository"
	"github.com/tu-usuario/inventario-core/pkg/logger"
)

// maxCASRetries reintentos internos ante ErrConflict antes de rendirse con
// ErrConcurrentModification. El caller decide si reintenta a más alto nivel.
const maxCASRetries = 3

// Umbrales por defecto cuando el alta de stock no los especifica.
const (
	defaultMinThreshold = 0
	defaultMaxThreshold = 100
)

// Service orquesta ledger y proyección bajo la garantía de consistencia por
// producto: cada mutación lee la proyección, valida contra la política,
// escribe vía compare-and-swap y registra el movimiento en el ledger.
type Service struct {
	ledger     repository.MovementLedger
	projection repository.StockProjection
	log        *logger.Logger
}

// NewService construye el servicio de inventario.
func NewService(ledger repository.MovementLedger, projection repository.StockProjection, log *logger.Logger) *Service {
	return &Service{
		ledger:     ledger,
		projection: projection,
		log:        log,
	}
}

// MovementInput entrada para registrar un movimiento.
// Magnitude es siempre positivo para IN/OUT/TRANSFER; para ADJUST es la
// cantidad absoluta objetivo (>= 0), no un delta. El tipo es siempre entrada
// explícita y autoritativa: nunca se infiere del signo.
type MovementInput struct {
	ProductID string
	Kind      string
	Magnitude int64
	Reason    string
	ActorID   string
	UnitCost  *decimal.Decimal
}

func (in MovementInput) validate() error {
	if in.ProductID == "" {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if !entity.ValidMovementKind(in.Kind) {
		return fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrInvalidInput, in.Kind)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return fmt.Errorf("%w: reason requerido", domain.ErrInvalidInput)
	}
	if in.ActorID == "" {
		return fmt.Errorf("%w: actor_id requerido", domain.ErrInvalidInput)
	}
	if in.Kind == entity.MovementKindADJUST {
		if in.Magnitude < 0 {
			return fmt.Errorf("%w: ADJUST requiere cantidad objetivo >= 0", domain.ErrInvalidInput)
		}
		return nil
	}
	if in.Magnitude <= 0 {
		return fmt.Errorf("%w: la cantidad debe ser un entero positivo", domain.ErrInvalidInput)
	}
	return nil
}

// RecordMovement ejecuta la máquina de estados de una mutación:
// Validating -> Applying -> Recording -> Committed, con Rejected desde
// Validating. Si el ledger falla después de que el compare-and-swap ya
// avanzó la proyección, el sistema queda en condición Degraded: se loggea
// como alerta de operador y se devuelve ErrDegraded, nunca como error
// reintentable de usuario.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (*entity.MovementRecord, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var lastConflict error
	for attempt := 1; attempt <= maxCASRetries; attempt++ {
		// Validating: leer proyección fresca en cada intento
		current, err := s.projection.Get(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, domain.ErrNotFound
		}

		var newQty int64
		switch input.Kind {
		case entity.MovementKindIN:
			// La suma no puede desbordar int64: un wrap negativo rompería
			// la invariante de cantidad >= 0
			if input.Magnitude > math.MaxInt64-current.Quantity {
				return nil, fmt.Errorf("%w: la entrada desborda la cantidad máxima representable", domain.ErrInvalidInput)
			}
			newQty = current.Quantity + input.Magnitude
		case entity.MovementKindOUT, entity.MovementKindTRANSFER:
			newQty = current.Quantity - input.Magnitude
			if newQty < 0 {
				// Rejected: sin registro en el ledger y sin cambio de proyección
				return nil, &domain.InsufficientStockError{
					ProductID: input.ProductID,
					Requested: input.Magnitude,
					Available: current.Quantity,
				}
			}
		case entity.MovementKindADJUST:
			// ADJUST lleva la cantidad absoluta objetivo; delta 0 sigue
			// siendo un movimiento válido (queda auditado)
			newQty = input.Magnitude
		}

		// Applying
		err = s.projection.CompareAndSet(ctx, input.ProductID, current.Quantity, newQty)
		if errors.Is(err, domain.ErrConflict) {
			lastConflict = err
			continue
		}
		if err != nil {
			return nil, err
		}

		// Recording
		movement := &entity.MovementRecord{
			ProductID:        input.ProductID,
			Kind:             input.Kind,
			Delta:            newQty - current.Quantity,
			PreviousQuantity: current.Quantity,
			NewQuantity:      newQty,
			Reason:           input.Reason,
			ActorID:          input.ActorID,
			UnitCost:         input.UnitCost,
		}
		if _, err := s.ledger.Append(ctx, movement); err != nil {
			s.log.Error().
				Str("condition", "degraded").
				Str("product_id", input.ProductID).
				Str("kind", input.Kind).
				Int64("previous_quantity", current.Quantity).
				Int64("new_quantity", newQty).
				Str("actor_id", input.ActorID).
				Err(err).
				Msg("proyección actualizada pero el append al ledger falló; requiere reconciliación manual")
			return nil, fmt.Errorf("%w (producto %s)", domain.ErrDegraded, input.ProductID)
		}

		// Committed
		return movement, nil
	}

	return nil, fmt.Errorf("%w: %d intentos sobre %s (%v)",
		domain.ErrConcurrentModification, maxCASRetries, input.ProductID, lastConflict)
}

// CreateStock da de alta el registro de stock de un producto (primera vez
// que se almacena). La cantidad inicial siempre es 0: las existencias entran
// después vía RecordMovement(IN), para que el ledger lo capture.
func (s *Service) CreateStock(ctx context.Context, productID, location string, minThreshold, maxThreshold int64) (*entity.StockRecord, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if minThreshold == 0 && maxThreshold == 0 {
		minThreshold = defaultMinThreshold
		maxThreshold = defaultMaxThreshold
	}
	if minThreshold < 0 || maxThreshold < 0 || minThreshold >= maxThreshold {
		return nil, fmt.Errorf("%w: umbrales inválidos (min %d, max %d)", domain.ErrInvalidInput, minThreshold, maxThreshold)
	}
	record := &entity.StockRecord{
		ProductID:    productID,
		Quantity:     0,
		Location:     location,
		MinThreshold: minThreshold,
		MaxThreshold: maxThreshold,
	}
	if err := s.projection.Create(ctx, record); err != nil {
		return nil, err
	}
	// Releer para devolver el registro tal como quedó almacenado (UpdatedAt incluido)
	return s.GetStock(ctx, productID)
}

// AdjustThresholds actualiza los umbrales min/max de un producto.
// No genera entrada en el ledger: los umbrales son configuración, no stock.
func (s *Service) AdjustThresholds(ctx context.Context, productID string, min, max int64) (*entity.StockRecord, error) {
	return s.projection.SetThresholds(ctx, productID, min, max)
}

// GetStock devuelve el registro de stock actual de un producto.
func (s *Service) GetStock(ctx context.Context, productID string) (*entity.StockRecord, error) {
	record, err := s.projection.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// ListLowStock devuelve los productos clasificados LOW por la política de
// umbrales. Es la lectura que el subsistema de notificaciones sondea para
// sintetizar alertas; aquí solo se expone la clasificación.
func (s *Service) ListLowStock(ctx context.Context) ([]*entity.StockRecord, error) {
	all, err := s.projection.List(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]*entity.StockRecord, 0, len(all))
	for _, record := range all {
		if policy.Classify(record.Quantity, record.MinThreshold, record.MaxThreshold) == policy.StatusLow {
			low = append(low, record)
		}
	}
	return low, nil
}

// History devuelve los movimientos de un producto, el más reciente primero.
func (s *Service) History(ctx context.Context, productID string, limit, offset int) ([]*entity.MovementRecord, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	return s.ledger.ListByProduct(ctx, productID, limit, offset)
}
