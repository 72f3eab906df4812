package repository

import (
	"context"

	"github.com/tu-usuario/inventario-core/internal/domain/entity"
)

// StockProjection define el puerto de la proyección de stock: la cantidad
// actual por producto, con actualización compare-and-swap para que ledger y
// proyección avancen juntos sin perder escrituras concurrentes.
type StockProjection interface {
	// Get devuelve el registro de stock o nil, nil si no existe.
	Get(ctx context.Context, productID string) (*entity.StockRecord, error)

	// Create registra un producto por primera vez (cantidad inicial 0 salvo
	// que el caller indique otra). Falla con domain.ErrDuplicate si ya existe.
	Create(ctx context.Context, record *entity.StockRecord) error

	// CompareAndSet actualiza la cantidad solo si la almacenada sigue siendo
	// expectedQty. Falla con domain.ErrConflict si otra escritura se
	// interpuso (el caller debe releer y reintentar) y con domain.ErrNotFound
	// si el producto no existe.
	CompareAndSet(ctx context.Context, productID string, expectedQty, newQty int64) error

	// SetThresholds actualiza los umbrales. Falla con domain.ErrInvalidInput
	// si min >= max o alguno es negativo.
	SetThresholds(ctx context.Context, productID string, min, max int64) (*entity.StockRecord, error)

	// List devuelve todos los registros de stock (para el barrido de stock bajo).
	List(ctx context.Context) ([]*entity.StockRecord, error)
}
