package domain

import "time"

// Market representa un mercado de predicción binario en Polymarket,
// con la metadata necesaria para decidir si es apto para market making.
type Market struct {
	ConditionID string
	Question    string
	Slug        string
	Category    string
	YesTokenID  string
	NoTokenID   string
	YesPrice    float64 // último precio conocido del token YES
	EndDate     time.Time
	Volume      float64
	Volume24h   float64 // volumen últimas 24h en USDC
	Liquidity   float64
	Active      bool
	Closed      bool
	Resolution  string // "YES" | "NO" | "" si sigue abierto
}

// Resolved devuelve true si el mercado ya tiene resultado publicado.
func (m Market) Resolved() bool {
	return m.Resolution != ""
}

// HoursToResolution devuelve las horas hasta que el mercado se resuelve.
// Devuelve 0 si EndDate no está definido o ya pasó.
func (m Market) HoursToResolution() float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	h := time.Until(m.EndDate).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// Snapshot construye un MarketSnapshot a partir del estado live del mercado.
// Lo usa el paper trader para alimentar al core con datos en tiempo real.
func (m Market) Snapshot(now time.Time, yesPrice float64) MarketSnapshot {
	return MarketSnapshot{
		Timestamp:  now,
		MarketID:   m.ConditionID,
		Question:   m.Question,
		YesPrice:   yesPrice,
		NoPrice:    1 - yesPrice,
		Volume:     m.Volume,
		Volume24h:  m.Volume24h,
		Liquidity:  m.Liquidity,
		EndDate:    m.EndDate,
		Resolved:   m.Resolved(),
		Resolution: m.Resolution,
	}
}

// TruncateQuestion devuelve la pregunta truncada a maxLen caracteres,
// con el conditionID como fallback si está vacía.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := question
	if q == "" {
		if len(conditionID) > 20 {
			q = conditionID[:20] + "..."
		} else {
			q = conditionID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
