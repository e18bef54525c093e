package transform

import "math"

const twoPi = 2 * math.Pi

// WrapAzimuth wraps an angle in radians into [0, 2*pi).
// Semantics match modulo(x, 2*pi) for all finite inputs.
func WrapAzimuth(rad float64) float64 {
	w := math.Mod(rad, twoPi)
	if w < 0 {
		w += twoPi
	}
	// A tiny negative input can round up to exactly 2*pi after the add.
	if w >= twoPi {
		w = 0
	}
	return w
}

// WrapHourAngle wraps an angle in radians into (-pi, pi].
// Computed as ((x + pi) mod 2*pi) - pi, with a result of exactly -pi
// remapped to +pi so the interval is open on the left, closed on the right.
func WrapHourAngle(rad float64) float64 {
	w := math.Mod(rad+math.Pi, twoPi)
	if w <= 0 {
		w += twoPi
	}
	return w - math.Pi
}
