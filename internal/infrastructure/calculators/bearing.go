package calculators

import (
	"fmt"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

// Bearing computes ultimate bearing capacity of a strip footing on
// cohesionless soil with Terzaghi's formula:
//
//	q_ult = γ*Df*Nq + 0.5*γ*B*Nr
type Bearing struct{}

func NewBearing() *Bearing { return &Bearing{} }

func (b *Bearing) Name() string { return domain.CalcTerzaghi }

func (b *Bearing) RequiredParams() []string {
	return []string{"B", "Df", "gamma", "phi"}
}

func (b *Bearing) Compute(params map[string]float64) (domain.CalcOutput, error) {
	width, depth, gamma, phi := params["B"], params["Df"], params["gamma"], params["phi"]
	for _, name := range b.RequiredParams() {
		if _, ok := params[name]; !ok {
			return domain.CalcOutput{}, domain.WrapError(domain.ErrInvalidInput, "terzaghi", fmt.Errorf("missing parameter %s", name))
		}
	}

	if err := validateBearingInputs(width, depth, gamma, phi); err != nil {
		return domain.CalcOutput{}, domain.WrapError(domain.ErrInvalidInput, "terzaghi", err)
	}

	factors := lookupFactors(phi)
	surcharge := gamma * depth * factors.Nq
	selfWeight := 0.5 * gamma * width * factors.Nr
	qUlt := surcharge + selfWeight

	return domain.CalcOutput{
		Value:   qUlt,
		Units:   "kPa",
		Formula: "q_ult = γ*Df*Nq + 0.5*γ*B*Nr",
		Inputs: map[string]float64{
			"B":     width,
			"Df":    depth,
			"gamma": gamma,
			"phi":   phi,
		},
		Factors: map[string]float64{
			"Nc": factors.Nc,
			"Nq": factors.Nq,
			"Nr": factors.Nr,
		},
		Steps: []string{
			fmt.Sprintf("Given: B = %g m (foundation width)", width),
			fmt.Sprintf("Given: γ = %g kN/m³ (unit weight)", gamma),
			fmt.Sprintf("Given: Df = %g m (foundation depth)", depth),
			fmt.Sprintf("Given: φ = %g° (friction angle)", phi),
			fmt.Sprintf("Lookup: Nq = %.2f, Nr = %.2f (from tables)", factors.Nq, factors.Nr),
			"Formula: q_ult = γ*Df*Nq + 0.5*γ*B*Nr",
			fmt.Sprintf("Term 1: γ*Df*Nq = %g × %g × %.2f = %.2f kPa", gamma, depth, factors.Nq, surcharge),
			fmt.Sprintf("Term 2: 0.5*γ*B*Nr = 0.5 × %g × %g × %.2f = %.2f kPa", gamma, width, factors.Nr, selfWeight),
			fmt.Sprintf("Result: q_ult = %.2f + %.2f = %.2f kPa", surcharge, selfWeight, qUlt),
		},
		Notes: []string{
			"This calculation uses Terzaghi's bearing capacity formula for cohesionless soils",
			"The formula assumes a strip footing and general shear failure",
			fmt.Sprintf("Bearing capacity factors taken from lookup table for φ = %g° (with interpolation if needed)", phi),
			"For design purposes, apply appropriate safety factors to the ultimate capacity",
		},
	}, nil
}

func validateBearingInputs(width, depth, gamma, phi float64) error {
	if width <= 0 {
		return fmt.Errorf("foundation width must be positive, got %g", width)
	}
	if width > 100 {
		return fmt.Errorf("foundation width %g m seems unreasonably large", width)
	}
	if gamma <= 0 {
		return fmt.Errorf("unit weight must be positive, got %g", gamma)
	}
	if gamma > 30 {
		return fmt.Errorf("unit weight %g kN/m³ seems unreasonably large for soil", gamma)
	}
	if depth < 0 {
		return fmt.Errorf("foundation depth cannot be negative, got %g", depth)
	}
	if depth > 50 {
		return fmt.Errorf("foundation depth %g m seems unreasonably large", depth)
	}
	minPhi, maxPhi := factorTableRange()
	if phi < minPhi || phi > maxPhi {
		return fmt.Errorf("friction angle must be between %g and %g degrees, got %g", minPhi, maxPhi, phi)
	}
	return nil
}
