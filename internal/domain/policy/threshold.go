package policy

// Status clasificación del nivel de stock frente a los umbrales configurados.
type Status string

const (
	StatusLow    Status = "LOW"
	StatusNormal Status = "NORMAL"
	StatusHigh   Status = "HIGH"
)

// Classify evalúa la cantidad contra los umbrales mínimo/máximo.
// Los bordes son inclusivos: quantity == min es LOW y quantity == max es HIGH.
// Si min == max (estado inválido preexistente) gana LOW: preferimos alertar.
func Classify(quantity, minThreshold, maxThreshold int64) Status {
	if quantity <= minThreshold {
		return StatusLow
	}
	if quantity >= maxThreshold {
		return StatusHigh
	}
	return StatusNormal
}

// PercentWithinRange posición de la cantidad dentro del rango [min, max]
// como porcentaje, recortado a [0, 100]. Se usa para los medidores de la UI.
// Devuelve 0 si max == min (rango degenerado).
func PercentWithinRange(quantity, minThreshold, maxThreshold int64) float64 {
	if maxThreshold == minThreshold {
		return 0
	}
	pct := float64(quantity-minThreshold) / float64(maxThreshold-minThreshold) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
