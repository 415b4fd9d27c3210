package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// beatGrid builds beats spaced period seconds apart over durationSec.
func beatGrid(durationSec, period float64) []float64 {
	var beats []float64
	for t := 0.0; t < durationSec; t += period {
		beats = append(beats, t)
	}
	return beats
}

// TestTransitionPoint_Cap verifies the candidate never exceeds two minutes
// even for very long tracks.
func TestTransitionPoint_Cap(t *testing.T) {
	point := TransitionPoint(400, nil, nil)
	assert.InDelta(t, 120.0, point, 1e-9)

	// Short track: 60% of duration.
	point = TransitionPoint(100, nil, nil)
	assert.InDelta(t, 60.0, point, 1e-9)
}

// TestSafeTransitionPoint_SnapsToBar verifies the nearest bar line is chosen
// when no sung sections interfere.
func TestSafeTransitionPoint_SnapsToBar(t *testing.T) {
	// Beats every 0.5s, bars every 2s.
	beats := beatGrid(200, 0.5)

	point := SafeTransitionPoint(beats, nil, 61.3, 15)
	assert.InDelta(t, 62.0, point, 1e-9)
}

// TestSafeTransitionPoint_AvoidsVocals verifies bars inside or too close to
// a sung section are rejected in favor of a clear one.
func TestSafeTransitionPoint_AvoidsVocals(t *testing.T) {
	beats := beatGrid(200, 0.5)
	sections := []Section{{Start: 58, End: 62}}

	point := SafeTransitionPoint(beats, sections, 60, 15)
	// 60 is inside the section, 58 and 62 too close to its edges.
	// The nearest clear bars are 56 and 64, equally distant.
	assert.Contains(t, []float64{56, 64}, point)
}

// TestSafeTransitionPoint_Fallback verifies the raw candidate is returned
// when no bar line falls inside the search radius.
func TestSafeTransitionPoint_Fallback(t *testing.T) {
	beats := []float64{0, 0.5, 1.0, 1.5}
	point := SafeTransitionPoint(beats, nil, 90, 15)
	assert.InDelta(t, 90.0, point, 1e-9)

	point = SafeTransitionPoint(nil, nil, 45, 15)
	assert.InDelta(t, 45.0, point, 1e-9)
}

// TestClampTempoRatio verifies the ratio is bounded and degenerate tempos
// leave the audio untouched.
func TestClampTempoRatio(t *testing.T) {
	tests := []struct {
		name     string
		src, tgt float64
		expected float64
	}{
		{"small nudge", 120, 123.6, 1.03},
		{"clamped up", 120, 180, 1.05},
		{"clamped down", 120, 60, 0.95},
		{"equal", 128, 128, 1.0},
		{"zero source", 0, 128, 1.0},
		{"zero target", 128, 0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ClampTempoRatio(tt.src, tt.tgt, 0.05), 1e-9)
		})
	}
}

// TestCrossfadeAppend_Length verifies the joined length and that the ends
// belong to the respective inputs.
func TestCrossfadeAppend_Length(t *testing.T) {
	a := make([]float32, 1000)
	b := make([]float32, 800)
	for i := range a {
		a[i] = 0.25
	}
	for i := range b {
		b[i] = -0.5
	}

	out := CrossfadeAppend(a, b, 200)
	require.Len(t, out, 1600)
	assert.Equal(t, float32(0.25), out[0])
	assert.Equal(t, float32(-0.5), out[len(out)-1])
}

// TestCrossfadeAppend_EqualPower verifies the fade keeps combined gain at
// unity for correlated full-scale inputs at the fade midpoint.
func TestCrossfadeAppend_EqualPower(t *testing.T) {
	a := make([]float32, 400)
	b := make([]float32, 400)
	for i := range a {
		a[i] = 1.0
		b[i] = 1.0
	}

	out := CrossfadeAppend(a, b, 200)
	require.Len(t, out, 600)

	// cos(x)+sin(x) peaks at sqrt(2) mid-fade for identical signals.
	mid := out[300]
	assert.InDelta(t, math.Sqrt2, float64(mid), 0.02)

	// Fade endpoints carry each input at full gain.
	assert.InDelta(t, 1.0, float64(out[200]), 0.02)
	assert.InDelta(t, 1.0, float64(out[399]), 0.02)
}

// TestCrossfadeAppend_ShortBuffers verifies the fade shrinks to fit small
// inputs instead of slicing out of range.
func TestCrossfadeAppend_ShortBuffers(t *testing.T) {
	a := make([]float32, 50)
	b := make([]float32, 30)

	out := CrossfadeAppend(a, b, 200)
	assert.Len(t, out, 50) // fade shortened to 30

	out = CrossfadeAppend(a, b, 0)
	assert.Len(t, out, 80)
}

// TestOverlay verifies additive mixing with clamping and bounds handling.
func TestOverlay(t *testing.T) {
	dst := []float32{0.9, -0.9, 0.1, 0.1}
	sfx := []float32{0.5, -0.5, 0.2}

	Overlay(dst, sfx, 0)
	assert.Equal(t, float32(1.0), dst[0])  // clamped high
	assert.Equal(t, float32(-1.0), dst[1]) // clamped low
	assert.InDelta(t, 0.3, float64(dst[2]), 1e-6)
	assert.InDelta(t, 0.1, float64(dst[3]), 1e-6)

	// Past the end and negative positions do not panic.
	Overlay(dst, sfx, 10)
	Overlay(dst, sfx, -5)
}

// TestNewMixer_Defaults verifies zero options fall back to sane values.
func TestNewMixer_Defaults(t *testing.T) {
	m := NewMixer(nil, MixOptions{})
	assert.Equal(t, 3000, m.opts.CrossfadeMs)
	assert.InDelta(t, 8.0, m.opts.TempoWindowSec, 1e-9)
	assert.InDelta(t, 0.05, m.opts.MaxTempoShift, 1e-9)
	assert.Equal(t, "192k", m.opts.Bitrate)
}
