package fee

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultParams() Params {
	return Params{BaseFee: 2000, Rate: decimal.RequireFromString("0.02"), MinFee: 1000, MaxFee: 20000}
}

func TestCompute_FundingGoalScenario(t *testing.T) {
	c := MustNew(defaultParams())
	assert.Equal(t, int64(4000), c.Compute(100000))
}

func TestCompute_RoundsHalfUpToNearestHundred(t *testing.T) {
	c := MustNew(Params{BaseFee: 0, Rate: decimal.RequireFromString("1"), MinFee: 0, MaxFee: 1000000})

	tests := []struct {
		basis int64
		want  int64
	}{
		{1049, 1000},
		{1050, 1100},
		{1051, 1100},
		{1149, 1100},
		{1150, 1200},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Compute(tt.basis), "basis %d", tt.basis)
	}
}

func TestCompute_FractionalRateRounding(t *testing.T) {
	c := MustNew(Params{BaseFee: 2000, Rate: decimal.RequireFromString("0.025"), MinFee: 0, MaxFee: 100000})
	// 2000 + 1234*0.025 = 2030.85 -> 2000
	assert.Equal(t, int64(2000), c.Compute(1234))
	// 2000 + 2000*0.025 = 2050 -> 2100
	assert.Equal(t, int64(2100), c.Compute(2000))
}

func TestCompute_Clamps(t *testing.T) {
	c := MustNew(defaultParams())
	assert.Equal(t, int64(2000), c.Compute(0), "base fee alone")
	assert.Equal(t, int64(20000), c.Compute(10_000_000))

	low := MustNew(Params{BaseFee: 0, Rate: decimal.RequireFromString("0.01"), MinFee: 1000, MaxFee: 20000})
	assert.Equal(t, int64(1000), low.Compute(500))
	assert.Equal(t, int64(1000), low.Compute(-50))
}

func TestNew_RejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Params)
	}{
		{"negative base", func(p *Params) { p.BaseFee = -1 }},
		{"negative rate", func(p *Params) { p.Rate = decimal.RequireFromString("-0.1") }},
		{"min above max", func(p *Params) { p.MinFee = 30000 }},
		{"unaligned min", func(p *Params) { p.MinFee = 1050 }},
		{"unaligned max", func(p *Params) { p.MaxFee = 19999 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			tt.mod(&p)
			_, err := New(p)
			assert.Error(t, err)
		})
	}
}

func TestCompute_PropertyMonotonicAlignedBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		minFee := int64(rng.Intn(50)) * Step
		maxFee := minFee + int64(rng.Intn(500))*Step
		p := Params{
			BaseFee: int64(rng.Intn(10000)),
			Rate:    decimal.NewFromInt(int64(rng.Intn(1000))).Shift(-4),
			MinFee:  minFee,
			MaxFee:  maxFee,
		}
		c, err := New(p)
		require.NoError(t, err)

		prevBasis := int64(0)
		prev := c.Compute(prevBasis)
		for i := 0; i < 50; i++ {
			basis := prevBasis + int64(rng.Intn(100000))
			got := c.Compute(basis)

			assert.Zero(t, got%Step, "trial %d: fee %d not a multiple of %d", trial, got, Step)
			assert.GreaterOrEqual(t, got, p.MinFee, "trial %d", trial)
			assert.LessOrEqual(t, got, p.MaxFee, "trial %d", trial)
			assert.GreaterOrEqual(t, got, prev, "trial %d: fee decreased from %d to %d at basis %d", trial, prev, got, basis)

			prev, prevBasis = got, basis
		}
	}
}
