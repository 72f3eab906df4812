package repository

import (
	"context"

	"github.com/tu-usuario/inventario-core/internal/domain/entity"
)

// MovementLedger define el puerto del libro de movimientos: almacenamiento
// durable, ordenado y append-only. Los registros nunca se mutan ni se borran.
type MovementLedger interface {
	// Append asigna id (monótono) y timestamp si faltan, persiste y devuelve
	// el id asignado. El registro es visible de inmediato para lecturas
	// posteriores. Falla con domain.ErrInvalidInput si reason está vacío o
	// kind no es uno de los cuatro tipos enumerados.
	Append(ctx context.Context, movement *entity.MovementRecord) (int64, error)

	// ListByProduct lista movimientos de un producto, descendente por
	// (timestamp, id). Un limit <= 0 aplica el tamaño de página por defecto
	// (50); el llamador nunca obtiene el historial completo sin pedirlo
	// página a página. Slice vacío si no hay movimientos (no es error).
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MovementRecord, error)

	// LatestByProduct devuelve el movimiento más reciente o nil, nil si no hay.
	LatestByProduct(ctx context.Context, productID string) (*entity.MovementRecord, error)
}
