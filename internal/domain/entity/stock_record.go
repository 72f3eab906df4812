package entity

import "time"

// StockRecord representa la existencia actual de un producto (proyección
// materializada del libro de movimientos). Se muta únicamente a través de
// operaciones respaldadas por el ledger, nunca de forma directa.
type StockRecord struct {
	ProductID    string
	Quantity     int64
	Location     string // etiqueta informativa (bodega, pasillo, etc.)
	MinThreshold int64
	MaxThreshold int64
	UpdatedAt    time.Time
}
