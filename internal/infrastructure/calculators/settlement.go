package calculators

import (
	"fmt"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

// Settlement estimates elastic settlement from applied load and
// Young's modulus:
//
//	s = load / E × 1000 (mm)
//
// A deliberately simplified model: no foundation geometry, layering or
// consolidation effects.
type Settlement struct{}

func NewSettlement() *Settlement { return &Settlement{} }

func (s *Settlement) Name() string { return domain.CalcSettlement }

func (s *Settlement) RequiredParams() []string {
	return []string{"load", "E"}
}

func (s *Settlement) Compute(params map[string]float64) (domain.CalcOutput, error) {
	for _, name := range s.RequiredParams() {
		if _, ok := params[name]; !ok {
			return domain.CalcOutput{}, domain.WrapError(domain.ErrInvalidInput, "settlement", fmt.Errorf("missing parameter %s", name))
		}
	}
	load, modulus := params["load"], params["E"]

	if err := validateSettlementInputs(load, modulus); err != nil {
		return domain.CalcOutput{}, domain.WrapError(domain.ErrInvalidInput, "settlement", err)
	}

	settlementMM := load / modulus * 1000

	return domain.CalcOutput{
		Value:   settlementMM,
		Units:   "mm",
		Formula: "settlement = load / E × 1000",
		Inputs: map[string]float64{
			"load": load,
			"E":    modulus,
		},
		Steps: []string{
			fmt.Sprintf("Given: Load = %g kN", load),
			fmt.Sprintf("Given: Young's modulus = %g kPa", modulus),
			"Formula: settlement = load / E × 1000",
			fmt.Sprintf("Calculation: settlement = %g / %g × 1000", load, modulus),
			fmt.Sprintf("Result: settlement = %.3f mm", settlementMM),
		},
		Notes: []string{
			"Simplified elastic settlement estimate; real designs account for foundation geometry, soil layering and consolidation",
		},
	}, nil
}

func validateSettlementInputs(load, modulus float64) error {
	if load <= 0 {
		return fmt.Errorf("load must be positive, got %g", load)
	}
	if load < 0.1 {
		return fmt.Errorf("load %g kN seems unreasonably small, check units", load)
	}
	if load > 1e6 {
		return fmt.Errorf("load %g kN seems unreasonably large", load)
	}
	if modulus <= 0 {
		return fmt.Errorf("Young's modulus must be positive, got %g", modulus)
	}
	if modulus < 100 {
		return fmt.Errorf("Young's modulus %g kPa seems unreasonably small, check units", modulus)
	}
	if modulus > 1e9 {
		return fmt.Errorf("Young's modulus %g kPa seems unreasonably large", modulus)
	}
	return nil
}
