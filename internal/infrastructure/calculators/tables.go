// Package calculators implements the deterministic geotechnical
// calculators exposed to the pipeline. Every calculator validates its
// own inputs and returns a step-by-step derivation alongside the
// numeric result.
package calculators

import "sort"

// bearingFactors holds the Terzaghi capacity factors for one friction
// angle.
type bearingFactors struct {
	Nc float64
	Nq float64
	Nr float64
}

// Terzaghi factors for cohesionless soils, keyed by friction angle in
// degrees. Values between table rows are linearly interpolated; values
// outside the table clamp to the nearest row.
var terzaghiFactors = map[float64]bearingFactors{
	0:  {Nc: 5.7, Nq: 1.0, Nr: 0.0},
	5:  {Nc: 7.3, Nq: 1.6, Nr: 0.5},
	10: {Nc: 9.6, Nq: 2.7, Nr: 1.2},
	15: {Nc: 12.9, Nq: 4.4, Nr: 2.5},
	20: {Nc: 17.7, Nq: 7.4, Nr: 5.0},
	25: {Nc: 25.1, Nq: 12.7, Nr: 9.7},
	30: {Nc: 37.2, Nq: 22.5, Nr: 19.7},
	35: {Nc: 57.8, Nq: 41.4, Nr: 42.4},
	40: {Nc: 95.7, Nq: 81.3, Nr: 100.4},
}

func factorTableRange() (min, max float64) {
	first := true
	for phi := range terzaghiFactors {
		if first {
			min, max = phi, phi
			first = false
			continue
		}
		if phi < min {
			min = phi
		}
		if phi > max {
			max = phi
		}
	}
	return min, max
}

func lookupFactors(phi float64) bearingFactors {
	if factors, ok := terzaghiFactors[phi]; ok {
		return factors
	}

	angles := make([]float64, 0, len(terzaghiFactors))
	for angle := range terzaghiFactors {
		angles = append(angles, angle)
	}
	sort.Float64s(angles)

	if phi < angles[0] {
		return terzaghiFactors[angles[0]]
	}
	if phi > angles[len(angles)-1] {
		return terzaghiFactors[angles[len(angles)-1]]
	}

	for i := 0; i < len(angles)-1; i++ {
		lo, hi := angles[i], angles[i+1]
		if phi < lo || phi > hi {
			continue
		}
		ratio := (phi - lo) / (hi - lo)
		a, b := terzaghiFactors[lo], terzaghiFactors[hi]
		return bearingFactors{
			Nc: a.Nc + ratio*(b.Nc-a.Nc),
			Nq: a.Nq + ratio*(b.Nq-a.Nq),
			Nr: a.Nr + ratio*(b.Nr-a.Nr),
		}
	}
	return terzaghiFactors[angles[0]]
}
