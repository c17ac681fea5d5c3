package domain

import (
	"math"
	"testing"
)

func TestWelchPValue_IdenticalDistributions(t *testing.T) {
	p := WelchPValue(5.0, 1.0, 100, 5.0, 1.0, 100)
	if p <= 0.9 {
		t.Errorf("expected p-value > 0.9 for identical distributions, got %g", p)
	}
}

func TestWelchPValue_StronglySeparatedMeans(t *testing.T) {
	// Means 5 standard errors apart with n=100 per side.
	p := WelchPValue(0.0, 1.0, 100, 5.0, 1.0, 100)
	if p >= 0.001 {
		t.Errorf("expected p-value < 0.001 for strongly separated means, got %g", p)
	}
}

func TestWelchPValue_ZeroVarianceEqualMeans(t *testing.T) {
	p := WelchPValue(3.0, 0, 10, 3.0, 0, 10)
	if p != 1.0 {
		t.Errorf("expected p-value exactly 1.0, got %g", p)
	}
}

func TestWelchPValue_ZeroVarianceUnequalMeans(t *testing.T) {
	p := WelchPValue(3.0, 0, 10, 4.0, 0, 10)
	if p != 0.0 {
		t.Errorf("expected p-value exactly 0.0, got %g", p)
	}
}

func TestWelchPValue_FlooredAtEpsilon(t *testing.T) {
	// A huge t-statistic drives the normal tail to zero; the reported
	// value must stay strictly positive.
	p := WelchPValue(0.0, 1.0, 10000, 100.0, 1.0, 10000)
	if p != pValueFloor {
		t.Errorf("expected p-value floored at %g, got %g", pValueFloor, p)
	}
}

func TestWelchPValue_Symmetry(t *testing.T) {
	a := WelchPValue(1.0, 2.0, 50, 3.0, 1.5, 60)
	b := WelchPValue(3.0, 1.5, 60, 1.0, 2.0, 50)
	if a != b {
		t.Errorf("p-value should not depend on argument order: %g vs %g", a, b)
	}
}

func TestNormalCDF(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{1.96, 0.975},
		{-1.96, 0.025},
		{3.0, 0.99865},
	}
	for _, tt := range tests {
		got := NormalCDF(tt.x)
		if math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("NormalCDF(%g) = %g, want ~%g", tt.x, got, tt.want)
		}
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(1.23456, 4); got != 1.2346 {
		t.Errorf("RoundTo(1.23456, 4) = %g, want 1.2346", got)
	}
	if got := RoundTo(0.0000004, 6); got != 0 {
		t.Errorf("RoundTo(0.0000004, 6) = %g, want 0", got)
	}
}
