package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tu-usuario/inventario-core/internal/domain"
	"github.com/tu-usuario/inventario-core/internal/domain/entity"
	"github.com/tu-usuario/inventario-core/internal/domain/repository"
)

var _ repository.StockProjection = (*StockProjection)(nil)

// StockProjection proyección de stock en memoria (modo demo y tests).
// El mutex hace atómico el compare-and-swap; la semántica hacia el caller es
// la misma que la del adaptador PostgreSQL.
type StockProjection struct {
	mu      sync.RWMutex
	records map[string]entity.StockRecord
}

// NewStockProjection construye la proyección en memoria.
func NewStockProjection() *StockProjection {
	return &StockProjection{records: make(map[string]entity.StockRecord)}
}

// Get devuelve una copia del registro o nil, nil si no existe.
func (p *StockProjection) Get(ctx context.Context, productID string) (*entity.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	record, ok := p.records[productID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Create da de alta el registro. Falla con ErrDuplicate si ya existe.
func (p *StockProjection) Create(ctx context.Context, record *entity.StockRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[record.ProductID]; ok {
		return domain.ErrDuplicate
	}
	record.UpdatedAt = time.Now()
	p.records[record.ProductID] = *record
	return nil
}

// CompareAndSet actualiza la cantidad solo si la almacenada sigue siendo
// expectedQty; ErrConflict si otra escritura se interpuso.
func (p *StockProjection) CompareAndSet(ctx context.Context, productID string, expectedQty, newQty int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.records[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if record.Quantity != expectedQty {
		return domain.ErrConflict
	}
	record.Quantity = newQty
	record.UpdatedAt = time.Now()
	p.records[productID] = record
	return nil
}

// SetThresholds actualiza los umbrales con la invariante 0 <= min < max.
func (p *StockProjection) SetThresholds(ctx context.Context, productID string, min, max int64) (*entity.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if min < 0 || max < 0 || min >= max {
		return nil, domain.ErrInvalidInput
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.records[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	record.MinThreshold = min
	record.MaxThreshold = max
	record.UpdatedAt = time.Now()
	p.records[productID] = record
	out := record
	return &out, nil
}

// List devuelve todos los registros, ordenados por ProductID para que las
// lecturas repetidas sean idénticas.
func (p *StockProjection) List(ctx context.Context) ([]*entity.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*entity.StockRecord, 0, len(p.records))
	for id := range p.records {
		record := p.records[id]
		out = append(out, &record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}
