package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// moneyValue is a flag holding an amount in minor units, entered in major
// units with at most two decimals ("50", "49.99").
type moneyValue int64

var _ pflag.Value = (*moneyValue)(nil)

func (m *moneyValue) String() string {
	return decimal.New(int64(*m), -2).StringFixed(2)
}

func (m *moneyValue) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return fmt.Errorf("amount %q has more than two decimals", s)
	}
	if minor.IsNegative() {
		return fmt.Errorf("amount %q must not be negative", s)
	}
	*m = moneyValue(minor.IntPart())
	return nil
}

func (m *moneyValue) Type() string {
	return "amount"
}
