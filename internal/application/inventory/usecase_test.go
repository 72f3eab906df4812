package inventory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/inventario-core/internal/application/inventory"
	"github.com/tu-usuario/inventario-core/internal/domain"
	"github.com/tu-usuario/inventario-core/internal/domain/entity"
	"github.com/tu-usuario/inventario-core/internal/domain/repository"
	"github.com/tu-usuario/inventario-core/internal/infrastructure/memory"
	"github.com/tu-usuario/inventario-core/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testActor = "tester"

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

// newFixture arma el servicio sobre los backends en memoria.
func newFixture(t *testing.T) (*inventory.Service, *memory.MovementLedger, *memory.StockProjection) {
	t.Helper()
	ledger := memory.NewMovementLedger()
	projection := memory.NewStockProjection()
	return inventory.NewService(ledger, projection, quietLogger()), ledger, projection
}

// seedStock da de alta el producto y lo carga hasta qty vía un IN (para que
// el ledger capture también la carga inicial).
func seedStock(t *testing.T, svc *inventory.Service, productID string, qty, min, max int64) {
	t.Helper()
	_, err := svc.CreateStock(context.Background(), productID, "bodega-central", min, max)
	require.NoError(t, err)
	if qty > 0 {
		_, err = svc.RecordMovement(context.Background(), inventory.MovementInput{
			ProductID: productID,
			Kind:      entity.MovementKindIN,
			Magnitude: qty,
			Reason:    "carga inicial",
			ActorID:   testActor,
		})
		require.NoError(t, err)
	}
}

func movement(productID, kind string, magnitude int64) inventory.MovementInput {
	return inventory.MovementInput{
		ProductID: productID,
		Kind:      kind,
		Magnitude: magnitude,
		Reason:    "test",
		ActorID:   testActor,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Alta de stock y umbrales
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateStock(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	record, err := svc.CreateStock(ctx, "p-1", "estante-3", 10, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.Quantity, "la cantidad inicial siempre es 0")
	assert.Equal(t, "estante-3", record.Location)

	// Umbrales en cero => por defecto
	record, err = svc.CreateStock(ctx, "p-2", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.MinThreshold)
	assert.Equal(t, int64(100), record.MaxThreshold)

	// Inválidos
	_, err = svc.CreateStock(ctx, "p-3", "", 50, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.CreateStock(ctx, "p-3", "", -1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.CreateStock(ctx, "", "", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Duplicado
	_, err = svc.CreateStock(ctx, "p-1", "", 10, 50)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

// TestAdjustThresholds_SinEntradaEnLedger: los umbrales son configuración,
// no stock; cambiarlos no agrega movimientos.
func TestAdjustThresholds_SinEntradaEnLedger(t *testing.T) {
	svc, ledger, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 40, 10, 50)

	before, err := ledger.ListByProduct(ctx, "p-1", 0, 0)
	require.NoError(t, err)

	updated, err := svc.AdjustThresholds(ctx, "p-1", 20, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(20), updated.MinThreshold)
	assert.Equal(t, int64(200), updated.MaxThreshold)

	after, err := ledger.ListByProduct(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

// ──────────────────────────────────────────────────────────────────────────────
// RecordMovement: máquina de estados y validaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordMovement_Validaciones(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 10, 0, 100)

	cases := []struct {
		name  string
		input inventory.MovementInput
	}{
		{"tipo desconocido", inventory.MovementInput{ProductID: "p-1", Kind: "entrada", Magnitude: 1, Reason: "x", ActorID: testActor}},
		{"reason vacío", inventory.MovementInput{ProductID: "p-1", Kind: entity.MovementKindIN, Magnitude: 1, Reason: "  ", ActorID: testActor}},
		{"actor vacío", inventory.MovementInput{ProductID: "p-1", Kind: entity.MovementKindIN, Magnitude: 1, Reason: "x"}},
		{"IN con magnitud cero", movement("p-1", entity.MovementKindIN, 0)},
		{"OUT con magnitud negativa", movement("p-1", entity.MovementKindOUT, -3)},
		{"TRANSFER con magnitud cero", movement("p-1", entity.MovementKindTRANSFER, 0)},
		{"ADJUST negativo", movement("p-1", entity.MovementKindADJUST, -1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordMovement(ctx, tc.input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	// Producto sin registro de stock
	_, err := svc.RecordMovement(ctx, movement("fantasma", entity.MovementKindIN, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestRecordMovement_Escenario reproduce el flujo de referencia:
// stock 100 (min 20, max 200); IN 50 => 150; OUT 200 => rechazado, sigue 150.
func TestRecordMovement_Escenario(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 100, 20, 200)

	mov, err := svc.RecordMovement(ctx, movement("p-1", entity.MovementKindIN, 50))
	require.NoError(t, err)
	assert.Equal(t, int64(100), mov.PreviousQuantity)
	assert.Equal(t, int64(150), mov.NewQuantity)
	assert.Equal(t, int64(50), mov.Delta)
	assert.NotZero(t, mov.ID)
	assert.False(t, mov.Timestamp.IsZero())

	_, err = svc.RecordMovement(ctx, movement("p-1", entity.MovementKindOUT, 200))
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(200), insufficient.Requested)
	assert.Equal(t, int64(150), insufficient.Available)

	record, err := svc.GetStock(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), record.Quantity, "el rechazo no cambia la proyección")
}

// TestRecordMovement_RechazoSinEfectos: un OUT rechazado no escribe en el
// ledger ni toca la proyección (todo-o-nada).
func TestRecordMovement_RechazoSinEfectos(t *testing.T) {
	svc, ledger, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 5, 0, 100)

	before, err := ledger.ListByProduct(ctx, "p-1", 0, 0)
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, movement("p-1", entity.MovementKindOUT, 6))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	after, err := ledger.ListByProduct(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "sin registro en el ledger")

	record, _ := svc.GetStock(ctx, "p-1")
	assert.Equal(t, int64(5), record.Quantity)
}

// TestRecordMovement_AjusteSinCambio: ADJUST a la cantidad actual produce
// delta 0 pero sigue siendo un movimiento válido y auditado (no un no-op).
func TestRecordMovement_AjusteSinCambio(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 80, 0, 100)

	mov, err := svc.RecordMovement(ctx, movement("p-1", entity.MovementKindADJUST, 80))
	require.NoError(t, err)
	assert.Equal(t, int64(0), mov.Delta)
	assert.Equal(t, int64(80), mov.PreviousQuantity)
	assert.Equal(t, int64(80), mov.NewQuantity)

	history, err := svc.History(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, mov.ID, history[0].ID, "el ajuste quedó en el historial")
}

func TestRecordMovement_AjusteComoObjetivoAbsoluto(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 80, 0, 100)

	// La magnitud del ADJUST es la cantidad objetivo, no un delta
	mov, err := svc.RecordMovement(ctx, movement("p-1", entity.MovementKindADJUST, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(-50), mov.Delta)
	assert.Equal(t, int64(30), mov.NewQuantity)

	// ADJUST a 0 es válido
	mov, err = svc.RecordMovement(ctx, movement("p-1", entity.MovementKindADJUST, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), mov.NewQuantity)
}

// TestRecordMovement_EntradaNoDesborda: un IN cuya suma con la cantidad
// actual excede int64 no puede envolver a negativo; se rechaza como entrada
// inválida sin tocar ledger ni proyección.
func TestRecordMovement_EntradaNoDesborda(t *testing.T) {
	svc, ledger, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 0, 0, 100)

	// Llenar hasta el tope representable es legítimo
	mov, err := svc.RecordMovement(ctx, movement("p-1", entity.MovementKindIN, math.MaxInt64))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), mov.NewQuantity)

	// Una unidad más desbordaría: rechazo, sin wrap negativo
	_, err = svc.RecordMovement(ctx, movement("p-1", entity.MovementKindIN, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	record, err := svc.GetStock(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), record.Quantity, "la cantidad nunca envuelve a negativo")
	assert.GreaterOrEqual(t, record.Quantity, int64(0))

	history, err := ledger.ListByProduct(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "el intento desbordante no dejó movimiento")
}

func TestRecordMovement_TransferResta(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 10, 0, 100)

	mov, err := svc.RecordMovement(ctx, movement("p-1", entity.MovementKindTRANSFER, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(-4), mov.Delta)
	assert.Equal(t, int64(6), mov.NewQuantity)

	_, err = svc.RecordMovement(ctx, movement("p-1", entity.MovementKindTRANSFER, 7))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariantes: consistencia ledger-proyección, lecturas idempotentes
// ──────────────────────────────────────────────────────────────────────────────

// TestConsistenciaLedgerProyeccion: reproducir todos los movimientos en orden
// cronológico sumando deltas desde 0 reconstruye exactamente la cantidad actual.
func TestConsistenciaLedgerProyeccion(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 0, 10, 500)

	steps := []inventory.MovementInput{
		movement("p-1", entity.MovementKindIN, 100),
		movement("p-1", entity.MovementKindOUT, 30),
		movement("p-1", entity.MovementKindADJUST, 90),
		movement("p-1", entity.MovementKindIN, 15),
		movement("p-1", entity.MovementKindTRANSFER, 5),
		movement("p-1", entity.MovementKindADJUST, 100),
	}
	for _, in := range steps {
		_, err := svc.RecordMovement(ctx, in)
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, history, len(steps))

	// El historial llega descendente: recorrer al revés = orden cronológico
	var replayed int64
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		assert.Equal(t, replayed, m.PreviousQuantity, "snapshot previo encadenado")
		replayed += m.Delta
		assert.Equal(t, replayed, m.NewQuantity, "snapshot posterior encadenado")
		assert.GreaterOrEqual(t, m.NewQuantity, int64(0))
	}

	record, err := svc.GetStock(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, record.Quantity, replayed, "replay desde 0 == proyección")
}

func TestHistory_LecturaIdempotente(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 20, 0, 100)
	_, err := svc.RecordMovement(ctx, movement("p-1", entity.MovementKindOUT, 3))
	require.NoError(t, err)

	first, err := svc.History(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	second, err := svc.History(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second, "dos lecturas sin escrituras intermedias son idénticas")
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

// TestRecordMovement_EscritoresConcurrentes: dos OUT 5 simultáneos sobre
// stock 5; exactamente uno gana, el otro reintenta y encuentra stock
// insuficiente. Nunca -5, nunca doble descuento.
func TestRecordMovement_EscritoresConcurrentes(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 5, 0, 100)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = svc.RecordMovement(ctx, movement("p-1", entity.MovementKindOUT, 5))
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactamente un escritor gana")
	assert.Equal(t, 1, insufficient, "el otro reintenta hacia stock insuficiente")

	record, err := svc.GetStock(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.Quantity, "nunca negativo ni doble descuento")
}

// TestRecordMovement_MuchosEscritoresConcurrentes: N entradas concurrentes de
// 1 unidad; ninguna se pierde (sin lost updates) y el ledger las captura todas.
func TestRecordMovement_MuchosEscritoresConcurrentes(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()
	seedStock(t, svc, "p-1", 0, 0, 1000)

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordMovement(ctx, movement("p-1", entity.MovementKindIN, 1))
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	record, err := svc.GetStock(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(applied), record.Quantity, "cada escritura aceptada cuenta exactamente una vez")

	history, err := svc.History(ctx, "p-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, applied, "un movimiento por escritura aceptada")
}

// ──────────────────────────────────────────────────────────────────────────────
// Fallos de infraestructura: reintentos agotados y condición Degraded
// ──────────────────────────────────────────────────────────────────────────────

// conflictedProjection siempre responde ErrConflict al compare-and-swap:
// simula un producto bajo contención permanente.
type conflictedProjection struct {
	repository.StockProjection
	attempts int
}

func (p *conflictedProjection) CompareAndSet(ctx context.Context, productID string, expectedQty, newQty int64) error {
	p.attempts++
	return domain.ErrConflict
}

func TestRecordMovement_ReintentosAgotados(t *testing.T) {
	ledger := memory.NewMovementLedger()
	base := memory.NewStockProjection()
	require.NoError(t, base.Create(context.Background(), &entity.StockRecord{
		ProductID: "p-1", Quantity: 10, MinThreshold: 0, MaxThreshold: 100,
	}))
	projection := &conflictedProjection{StockProjection: base}
	svc := inventory.NewService(ledger, projection, quietLogger())

	_, err := svc.RecordMovement(context.Background(), movement("p-1", entity.MovementKindIN, 1))
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, 3, projection.attempts, "reintento interno acotado")

	history, err := ledger.ListByProduct(context.Background(), "p-1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, history, "sin movimiento registrado")
}

// failingLedger rechaza todo Append: simula el fallo de persistencia después
// de que la proyección ya avanzó.
type failingLedger struct {
	repository.MovementLedger
}

func (l *failingLedger) Append(ctx context.Context, movement *entity.MovementRecord) (int64, error) {
	return 0, errors.New("disco lleno")
}

// TestRecordMovement_CondicionDegradada: si el ledger falla tras un CAS
// exitoso, el error es ErrDegraded (no un error reintetable común) y la
// divergencia queda visible: la proyección avanzó sin su movimiento.
func TestRecordMovement_CondicionDegradada(t *testing.T) {
	realLedger := memory.NewMovementLedger()
	projection := memory.NewStockProjection()
	require.NoError(t, projection.Create(context.Background(), &entity.StockRecord{
		ProductID: "p-1", Quantity: 10, MinThreshold: 0, MaxThreshold: 100,
	}))
	svc := inventory.NewService(&failingLedger{MovementLedger: realLedger}, projection, quietLogger())

	_, err := svc.RecordMovement(context.Background(), movement("p-1", entity.MovementKindIN, 5))
	require.ErrorIs(t, err, domain.ErrDegraded)

	record, err := projection.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), record.Quantity, "la proyección ya avanzó: divergencia a reconciliar")
}

// ──────────────────────────────────────────────────────────────────────────────
// Stock bajo
// ──────────────────────────────────────────────────────────────────────────────

func TestListLowStock(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	seedStock(t, svc, "low-en-borde", 10, 10, 50) // quantity == min => LOW
	seedStock(t, svc, "agotado", 0, 10, 50)       // 0 <= min => LOW
	seedStock(t, svc, "normal", 30, 10, 50)
	seedStock(t, svc, "alto", 90, 10, 50)

	low, err := svc.ListLowStock(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(low))
	for _, r := range low {
		ids = append(ids, r.ProductID)
	}
	assert.ElementsMatch(t, []string{"low-en-borde", "agotado"}, ids)
}
