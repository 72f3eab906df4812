package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/inventario-core/internal/domain"
	"github.com/tu-usuario/inventario-core/internal/domain/entity"
	"github.com/tu-usuario/inventario-core/internal/domain/repository"
)

var _ repository.MovementLedger = (*MovementLedgerRepo)(nil)

// MovementLedgerRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// La tabla movement_records es append-only: sin UPDATE ni DELETE; el id
// BIGSERIAL da la asignación monótona que exige el orden (timestamp, id).
type MovementLedgerRepo struct {
	q Querier
}

// NewMovementLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementLedgerRepository(q Querier) *MovementLedgerRepo {
	return &MovementLedgerRepo{q: q}
}

const movementColumns = `id, product_id, kind, delta, previous_quantity, new_quantity, reason, actor_id, unit_cost, recorded_at`

// Append valida, asigna timestamp si falta y persiste. El id lo asigna la
// secuencia de la tabla y queda escrito en movement.ID.
func (r *MovementLedgerRepo) Append(ctx context.Context, movement *entity.MovementRecord) (int64, error) {
	if !entity.ValidMovementKind(movement.Kind) {
		return 0, domain.ErrInvalidInput
	}
	if strings.TrimSpace(movement.Reason) == "" {
		return 0, domain.ErrInvalidInput
	}
	if movement.PreviousQuantity < 0 || movement.NewQuantity < 0 {
		return 0, domain.ErrInvalidInput
	}
	if movement.Timestamp.IsZero() {
		movement.Timestamp = time.Now()
	}
	query := `
		INSERT INTO movement_records (product_id, kind, delta, previous_quantity, new_quantity, reason, actor_id, unit_cost, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	actorID := (*string)(nil)
	if movement.ActorID != "" {
		actorID = &movement.ActorID
	}
	err := r.q.QueryRow(ctx, query,
		movement.ProductID, movement.Kind, movement.Delta,
		movement.PreviousQuantity, movement.NewQuantity,
		movement.Reason, actorID, movement.UnitCost, movement.Timestamp,
	).Scan(&movement.ID)
	if err != nil {
		return 0, fmt.Errorf("append movement: %w", err)
	}
	return movement.ID, nil
}

// ListByProduct lista movimientos de un producto, descendente por (recorded_at, id).
func (r *MovementLedgerRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MovementRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + movementColumns + `
		FROM movement_records WHERE product_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	defer rows.Close()
	list := []*entity.MovementRecord{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// LatestByProduct devuelve el movimiento más reciente o nil, nil si no hay.
func (r *MovementLedgerRepo) LatestByProduct(ctx context.Context, productID string) (*entity.MovementRecord, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movement_records WHERE product_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// scanMovement mapea una fila (pgx.Row o pgx.Rows) a MovementRecord.
func scanMovement(row pgx.Row) (*entity.MovementRecord, error) {
	var m entity.MovementRecord
	var actorID *string
	if err := row.Scan(
		&m.ID, &m.ProductID, &m.Kind, &m.Delta,
		&m.PreviousQuantity, &m.NewQuantity,
		&m.Reason, &actorID, &m.UnitCost, &m.Timestamp,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan movement: %w", err)
	}
	if actorID != nil {
		m.ActorID = *actorID
	}
	return &m, nil
}
