package domain

import "time"

// InventoryState es el inventario de un mercado: posición long en el lado
// YES con contabilidad de coste medio ponderado.
//
// Invariante: CostBasis == AvgPrice × Position fuera de cada mutación.
type InventoryState struct {
	Position  float64 // contratos en cartera (≥ 0)
	AvgPrice  float64 // precio medio de entrada
	CostBasis float64 // Position × AvgPrice

	// RiskOffUntil marca el fin del cooldown tras un stop-loss.
	// Zero si no hay cooldown activo.
	RiskOffUntil time.Time
}

// Add añade contratos a la posición recalculando el precio medio ponderado.
// No hace nada si contracts ≤ 0.
func (inv *InventoryState) Add(contracts, price float64) {
	if contracts <= 0 {
		return
	}
	total := inv.Position + contracts
	inv.AvgPrice = (inv.CostBasis + price*contracts) / total
	inv.Position = total
	inv.CostBasis = inv.AvgPrice * inv.Position
}

// Remove quita contratos de la posición al precio medio existente,
// recortando al tamaño actual si se pide más de lo que hay.
// Devuelve la porción de cost basis realizada; el P&L realizado lo calcula
// el caller como (exit − AvgPrice) × contratos.
func (inv *InventoryState) Remove(contracts float64) float64 {
	if contracts > inv.Position {
		contracts = inv.Position
	}
	if contracts <= 0 {
		return 0
	}
	costPortion := inv.AvgPrice * contracts
	inv.Position -= contracts
	inv.CostBasis = inv.AvgPrice * inv.Position
	return costPortion
}

// Clear vacía la posición por completo (resolución o cierre forzado).
func (inv *InventoryState) Clear() {
	inv.Position = 0
	inv.AvgPrice = 0
	inv.CostBasis = 0
}

// IsRiskOff devuelve true mientras el cooldown post stop-loss esté activo.
func (inv *InventoryState) IsRiskOff() bool {
	return !inv.RiskOffUntil.IsZero()
}

// CheckCooldown limpia el cooldown si ya expiró.
func (inv *InventoryState) CheckCooldown(now time.Time) {
	if !inv.RiskOffUntil.IsZero() && !now.Before(inv.RiskOffUntil) {
		inv.RiskOffUntil = time.Time{}
	}
}
