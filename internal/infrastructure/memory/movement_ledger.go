package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tu-usuario/inventario-core/internal/domain"
	"github.com/tu-usuario/inventario-core/internal/domain/entity"
	"github.com/tu-usuario/inventario-core/internal/domain/repository"
)

var _ repository.MovementLedger = (*MovementLedger)(nil)

// MovementLedger libro de movimientos en memoria (modo demo y tests).
// Append-only: guarda copias, nunca expone los registros internos.
type MovementLedger struct {
	mu        sync.RWMutex
	nextID    int64
	byProduct map[string][]entity.MovementRecord
}

// NewMovementLedger construye el ledger en memoria.
func NewMovementLedger() *MovementLedger {
	return &MovementLedger{
		nextID:    1,
		byProduct: make(map[string][]entity.MovementRecord),
	}
}

// Append valida, asigna id monótono y timestamp si faltan, y persiste.
// Visible de inmediato para lecturas posteriores.
func (l *MovementLedger) Append(ctx context.Context, movement *entity.MovementRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !entity.ValidMovementKind(movement.Kind) {
		return 0, domain.ErrInvalidInput
	}
	if strings.TrimSpace(movement.Reason) == "" {
		return 0, domain.ErrInvalidInput
	}
	if movement.PreviousQuantity < 0 || movement.NewQuantity < 0 {
		return 0, domain.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	movement.ID = l.nextID
	l.nextID++
	if movement.Timestamp.IsZero() {
		movement.Timestamp = time.Now()
	}
	l.byProduct[movement.ProductID] = append(l.byProduct[movement.ProductID], *movement)
	return movement.ID, nil
}

// ListByProduct lista descendente por (timestamp, id). Slice vacío si no hay.
func (l *MovementLedger) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MovementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	stored := l.byProduct[productID]
	all := make([]entity.MovementRecord, len(stored))
	copy(all, stored)
	l.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID > all[j].ID
	})

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*entity.MovementRecord{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}

	out := make([]*entity.MovementRecord, len(all))
	for i := range all {
		m := all[i]
		out[i] = &m
	}
	return out, nil
}

// LatestByProduct devuelve el movimiento más reciente o nil, nil.
func (l *MovementLedger) LatestByProduct(ctx context.Context, productID string) (*entity.MovementRecord, error) {
	list, err := l.ListByProduct(ctx, productID, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
