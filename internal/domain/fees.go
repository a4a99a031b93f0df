package domain

import "math"

// FeeConfig es la curva de fees de Polymarket para una categoría de mercado.
//
// taker_fee(p) = fee_rate × (p·(1−p))^exponent
// maker_rebate(p) = taker_fee(p) × maker_rebate_pct
//
// La curva tiene forma de parábola: el fee es máximo en p=0.5 (máxima
// incertidumbre) y tiende a 0 cerca de 0 y de 1.
type FeeConfig struct {
	FeeRate        float64 `yaml:"fee_rate"`
	Exponent       float64 `yaml:"exponent"`
	MakerRebatePct float64 `yaml:"maker_rebate_pct"` // rebate como fracción del taker fee
}

// Presets por categoría de mercado.
var (
	// FeePolitical: mercados políticos/eventos — 0% fee para todos.
	FeePolitical = FeeConfig{FeeRate: 0, Exponent: 1, MakerRebatePct: 0}
	// FeeCrypto: taker = 0.25·(p(1−p))², maker rebate 20% del taker.
	FeeCrypto = FeeConfig{FeeRate: 0.25, Exponent: 2, MakerRebatePct: 0.20}
	// FeeSports: taker = 0.0175·(p(1−p)), maker rebate 25% del taker.
	FeeSports = FeeConfig{FeeRate: 0.0175, Exponent: 1, MakerRebatePct: 0.25}
)

// FeePreset devuelve el preset para la clave dada ("political", "crypto",
// "sports"). Una clave desconocida devuelve FeePolitical, que es el default
// conservador: sin fees ni rebates.
func FeePreset(key string) FeeConfig {
	switch key {
	case "crypto":
		return FeeCrypto
	case "sports":
		return FeeSports
	default:
		return FeePolitical
	}
}

// TakerFee devuelve el fee rate efectivo de una orden taker al precio dado.
func (f FeeConfig) TakerFee(price float64) float64 {
	if f.FeeRate == 0 {
		return 0
	}
	return f.FeeRate * math.Pow(price*(1-price), f.Exponent)
}

// MakerRebate devuelve el rebate de una orden maker al precio dado.
// Positivo = ingreso para el maker.
func (f FeeConfig) MakerRebate(price float64) float64 {
	return f.TakerFee(price) * f.MakerRebatePct
}
