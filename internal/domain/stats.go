package domain

import "math"

// pValueFloor keeps reported p-values strictly positive so downstream
// log-scale reporting never sees a literal zero.
const pValueFloor = 1e-10

// WelchPValue runs Welch's two-sample test for a difference of means
// under unequal variances and returns an approximate two-sided p-value.
//
// The p-value uses the standard normal CDF instead of the exact
// t-distribution, which is valid for large samples (df > 30) and
// approximate below that. Zero variance on both sides is special-cased
// to avoid dividing by zero: equal means are maximally insignificant,
// unequal means maximally significant.
func WelchPValue(meanA, stdA float64, nA int64, meanB, stdB float64, nB int64) float64 {
	if stdA == 0 && stdB == 0 {
		if meanA == meanB {
			return 1.0
		}
		return 0.0
	}

	se := math.Sqrt(stdA*stdA/float64(nA) + stdB*stdB/float64(nB))
	if se == 0 {
		return 1.0
	}

	t := math.Abs(meanA-meanB) / se
	p := 2 * (1 - NormalCDF(t))
	return math.Max(p, pValueFloor)
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
