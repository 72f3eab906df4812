package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementKindIN       = "IN"       // entrada
	MovementKindOUT      = "OUT"      // salida
	MovementKindADJUST   = "ADJUST"   // ajuste a cantidad absoluta
	MovementKindTRANSFER = "TRANSFER" // traslado (modelado solo como tipo de movimiento)
)

// ValidMovementKind indica si kind es uno de los cuatro tipos enumerados.
func ValidMovementKind(kind string) bool {
	switch kind {
	case MovementKindIN, MovementKindOUT, MovementKindADJUST, MovementKindTRANSFER:
		return true
	}
	return false
}

// MovementRecord es el registro inmutable de un cambio de stock. Una vez
// escrito no se modifica ni se borra; las correcciones son nuevos ADJUST.
// El orden total por producto es (Timestamp, ID).
type MovementRecord struct {
	ID               int64
	ProductID        string
	Kind             string
	Delta            int64 // cambio con signo realmente aplicado
	PreviousQuantity int64
	NewQuantity      int64
	Reason           string
	ActorID          string
	UnitCost         *decimal.Decimal // costo unitario de valoración (opcional)
	Timestamp        time.Time
}
