// Package fee prices the non-refundable administrative fee charged when a
// negotiation opens.
package fee

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Step is the rounding granularity in currency units.
const Step = 100

var step = decimal.NewFromInt(Step)

// Params are the platform-wide fee settings.
type Params struct {
	BaseFee int64
	Rate    decimal.Decimal
	MinFee  int64
	MaxFee  int64
}

// Calculator computes clamp(round100(base + basis*rate), min, max).
type Calculator struct {
	p Params
}

// New validates p and returns a Calculator.
func New(p Params) (*Calculator, error) {
	switch {
	case p.BaseFee < 0:
		return nil, fmt.Errorf("base fee %d must not be negative", p.BaseFee)
	case p.Rate.IsNegative():
		return nil, fmt.Errorf("rate %s must not be negative", p.Rate)
	case p.MinFee < 0:
		return nil, fmt.Errorf("min fee %d must not be negative", p.MinFee)
	case p.MinFee > p.MaxFee:
		return nil, fmt.Errorf("min fee %d exceeds max fee %d", p.MinFee, p.MaxFee)
	case p.MinFee%Step != 0 || p.MaxFee%Step != 0:
		return nil, fmt.Errorf("fee bounds %d..%d must be multiples of %d", p.MinFee, p.MaxFee, Step)
	}
	return &Calculator{p: p}, nil
}

// MustNew is New for static configuration known to be valid.
func MustNew(p Params) *Calculator {
	c, err := New(p)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Calculator) Params() Params {
	return c.p
}

// Compute prices the fee for a basis amount. Negative bases are treated as zero.
func (c *Calculator) Compute(basis int64) int64 {
	if basis < 0 {
		basis = 0
	}
	raw := decimal.NewFromInt(c.p.BaseFee).Add(decimal.NewFromInt(basis).Mul(c.p.Rate))
	// Round half away from zero equals half up for non-negative amounts.
	rounded := raw.Div(step).Round(0).Mul(step).IntPart()

	if rounded < c.p.MinFee {
		return c.p.MinFee
	}
	if rounded > c.p.MaxFee {
		return c.p.MaxFee
	}
	return rounded
}
