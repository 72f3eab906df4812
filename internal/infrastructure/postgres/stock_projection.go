package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/inventario-core/internal/domain"
	"github.com/tu-usuario/inventario-core/internal/domain/entity"
	"github.com/tu-usuario/inventario-core/internal/domain/repository"
)

var _ repository.StockProjection = (*StockProjectionRepo)(nil)

// StockProjectionRepo proyección de stock sobre PostgreSQL (usable con pool o tx).
// La actualización es optimista: el UPDATE condiciona sobre la cantidad leída
// (WHERE quantity = expected) en lugar de bloquear la fila, así escritores
// concurrentes serializan por reintento sin lock global.
type StockProjectionRepo struct {
	q Querier
}

// NewStockProjectionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockProjectionRepository(q Querier) *StockProjectionRepo {
	return &StockProjectionRepo{q: q}
}

const stockColumns = `product_id, quantity, location, min_threshold, max_threshold, updated_at`

// Get obtiene el registro de stock o nil, nil si no existe.
func (r *StockProjectionRepo) Get(ctx context.Context, productID string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE product_id = $1`
	var s entity.StockRecord
	err := r.q.QueryRow(ctx, query, productID).Scan(
		&s.ProductID, &s.Quantity, &s.Location, &s.MinThreshold, &s.MaxThreshold, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	return &s, nil
}

// Create da de alta el registro de stock de un producto.
func (r *StockProjectionRepo) Create(ctx context.Context, record *entity.StockRecord) error {
	query := `
		INSERT INTO stock_records (product_id, quantity, location, min_threshold, max_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())`
	_, err := r.q.Exec(ctx, query,
		record.ProductID, record.Quantity, record.Location,
		record.MinThreshold, record.MaxThreshold,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock record: %w", err)
	}
	return nil
}

// CompareAndSet actualiza la cantidad solo si la almacenada sigue siendo
// expectedQty. RowsAffected == 0 distingue conflicto de registro inexistente.
func (r *StockProjectionRepo) CompareAndSet(ctx context.Context, productID string, expectedQty, newQty int64) error {
	query := `
		UPDATE stock_records SET quantity = $3, updated_at = now()
		WHERE product_id = $1 AND quantity = $2`
	tag, err := r.q.Exec(ctx, query, productID, expectedQty, newQty)
	if err != nil {
		return fmt.Errorf("compare-and-set stock: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	// O la fila no existe, o la cantidad ya cambió bajo nuestros pies
	var exists bool
	err = r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_records WHERE product_id = $1)`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("compare-and-set stock: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// SetThresholds actualiza los umbrales con la invariante 0 <= min < max.
func (r *StockProjectionRepo) SetThresholds(ctx context.Context, productID string, min, max int64) (*entity.StockRecord, error) {
	if min < 0 || max < 0 || min >= max {
		return nil, domain.ErrInvalidInput
	}
	query := `
		UPDATE stock_records SET min_threshold = $2, max_threshold = $3, updated_at = now()
		WHERE product_id = $1
		RETURNING ` + stockColumns
	var s entity.StockRecord
	err := r.q.QueryRow(ctx, query, productID, min, max).Scan(
		&s.ProductID, &s.Quantity, &s.Location, &s.MinThreshold, &s.MaxThreshold, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("set thresholds: %w", err)
	}
	return &s, nil
}

// List devuelve todos los registros de stock ordenados por producto.
func (r *StockProjectionRepo) List(ctx context.Context) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records ORDER BY product_id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	defer rows.Close()
	list := []*entity.StockRecord{}
	for rows.Next() {
		var s entity.StockRecord
		if err := rows.Scan(&s.ProductID, &s.Quantity, &s.Location, &s.MinThreshold, &s.MaxThreshold, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
