package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/polysim/internal/domain"
)

func TestTakerFeeParabola(t *testing.T) {
	fees := domain.FeeCrypto

	// Simétrica alrededor de p=0.5
	for _, p := range []float64{0.1, 0.25, 0.4} {
		assert.InDelta(t, fees.TakerFee(p), fees.TakerFee(1-p), 1e-12, "p=%.2f", p)
	}

	// Cero en los extremos
	assert.Zero(t, fees.TakerFee(0))
	assert.Zero(t, fees.TakerFee(1))

	// Máximo en p=0.5
	assert.Greater(t, fees.TakerFee(0.5), fees.TakerFee(0.3))
	assert.InDelta(t, 0.25*0.0625, fees.TakerFee(0.5), 1e-12) // 0.25·(0.25)²
}

func TestTakerFeePolitical(t *testing.T) {
	for _, p := range []float64{0, 0.3, 0.5, 0.9, 1} {
		assert.Zero(t, domain.FeePolitical.TakerFee(p))
		assert.Zero(t, domain.FeePolitical.MakerRebate(p))
	}
}

func TestMakerRebate(t *testing.T) {
	// sports: taker = 0.0175·(p(1−p)), rebate 25%
	taker := domain.FeeSports.TakerFee(0.5)
	assert.InDelta(t, 0.0175*0.25, taker, 1e-12)
	assert.InDelta(t, taker*0.25, domain.FeeSports.MakerRebate(0.5), 1e-12)
}

func TestFeePreset(t *testing.T) {
	assert.Equal(t, domain.FeeCrypto, domain.FeePreset("crypto"))
	assert.Equal(t, domain.FeeSports, domain.FeePreset("sports"))
	assert.Equal(t, domain.FeePolitical, domain.FeePreset("political"))

	// Clave desconocida → default conservador
	assert.Equal(t, domain.FeePolitical, domain.FeePreset("forex"))
	assert.Equal(t, domain.FeePolitical, domain.FeePreset(""))
}
