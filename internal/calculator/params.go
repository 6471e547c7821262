package calculator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Params are the chart overlay settings a user may adjust.
type Params struct {
	SMAPeriods int     `json:"sma_periods" validate:"min=1,max=50"`
	BBPeriods  int     `json:"bb_periods" validate:"min=1,max=50"`
	BBStd      float64 `json:"bb_std" validate:"min=1,max=4"`
	RSIPeriods int     `json:"rsi_periods" validate:"min=1,max=50"`
	RSIUpper   int     `json:"rsi_upper" validate:"min=50,max=90"`
	RSILower   int     `json:"rsi_lower" validate:"min=10,max=50"`
}

// DefaultParams returns the initial overlay settings.
func DefaultParams() Params {
	return Params{
		SMAPeriods: 20,
		BBPeriods:  20,
		BBStd:      2,
		RSIPeriods: 20,
		RSIUpper:   70,
		RSILower:   30,
	}
}

var validate = validator.New()

// Validate checks every field against its allowed range.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid indicator params: %w", err)
	}
	return nil
}
