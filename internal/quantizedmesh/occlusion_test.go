package quantizedmesh

import (
	"math"
	"testing"
)

func TestComputeMagnitudeHandlesZeroDenominatorGracefully(t *testing.T) {
	// direction coincides exactly with the point's own direction so
	// cosAlpha=1, sinAlpha=0; with magnitude=1 (on the unit sphere) the
	// denominator cos(0)*1 - 0*0 = 1, not degenerate, but we additionally
	// check that a genuinely degenerate case does not panic or produce NaN.
	direction := normalize(Vec3{1, 0, 0})
	result := computeMagnitude(Vec3{1, 0, 0}, direction)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		t.Fatalf("expected a finite magnitude, got %v", result)
	}

	// P=(1,1,0) seen along +X: cosAlpha=sinAlpha=cosBeta=sinBeta=1/sqrt(2),
	// so the denominator is exactly zero.
	degenerate := computeMagnitude(Vec3{1, 1, 0}, Vec3{1, 0, 0})
	if math.IsNaN(degenerate) || math.IsInf(degenerate, 0) {
		t.Fatalf("expected a finite magnitude for a zero denominator, got %v", degenerate)
	}
}

func TestHorizonOcclusionPointFiniteForOrdinaryTile(t *testing.T) {
	positions := []Vec3{
		lonLatHeightToECEF(4, 50, 100),
		lonLatHeightToECEF(6, 50, 150),
		lonLatHeightToECEF(4, 52, 200),
		lonLatHeightToECEF(6, 52, 50),
	}
	center, _ := boundingSphere(positions)

	p := HorizonOcclusionPoint(positions, center)
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("horizon occlusion point component %d is not finite: %v", i, p)
		}
	}
}

func TestOctEncodeStaysInByteRange(t *testing.T) {
	normals := []Vec3{
		{0, 0, 1}, {0, 0, -1}, {1, 0, 0}, {-1, 0, 0},
		{0.577, 0.577, 0.577}, {-0.577, -0.577, -0.577},
	}
	for _, n := range normals {
		x, y := octEncode(normalize(n))
		if x > 255 || y > 255 {
			t.Fatalf("oct-encoded components out of byte range: (%d,%d)", x, y)
		}
	}
}
