package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClip_Duration verifies duration math and the zero-rate guard.
func TestClip_Duration(t *testing.T) {
	clip := &Clip{Samples: make([]float32, 44100*2), SampleRate: 44100}
	assert.InDelta(t, 2.0, clip.Duration(), 1e-9)

	broken := &Clip{Samples: make([]float32, 100)}
	assert.Zero(t, broken.Duration())
}

// TestClip_SampleAt verifies second-to-index conversion is clamped to the
// buffer bounds.
func TestClip_SampleAt(t *testing.T) {
	clip := &Clip{Samples: make([]float32, 1000), SampleRate: 100}

	assert.Equal(t, 0, clip.SampleAt(-1))
	assert.Equal(t, 0, clip.SampleAt(0))
	assert.Equal(t, 500, clip.SampleAt(5))
	assert.Equal(t, 1000, clip.SampleAt(10))
	assert.Equal(t, 1000, clip.SampleAt(99))
}

// TestResample verifies speed ratios shorten or lengthen the buffer and
// interpolation preserves a linear ramp.
func TestResample(t *testing.T) {
	ramp := make([]float32, 1000)
	for i := range ramp {
		ramp[i] = float32(i)
	}

	faster := Resample(ramp, 2.0)
	require.Len(t, faster, 500)
	// Every output sample skips ahead two input samples.
	assert.InDelta(t, 0, faster[0], 1e-4)
	assert.InDelta(t, 500, faster[250], 1.0)

	slower := Resample(ramp, 0.5)
	require.Len(t, slower, 2000)
	assert.InDelta(t, 250, slower[500], 1.0)

	// Degenerate inputs pass through untouched.
	assert.Equal(t, ramp, Resample(ramp, 0))
	assert.Empty(t, Resample(nil, 2.0))
}

// TestClip_ResampleTo verifies sample rate conversion adjusts length
// proportionally and is a no-op at the same rate.
func TestClip_ResampleTo(t *testing.T) {
	clip := &Clip{Samples: make([]float32, 44100), SampleRate: 44100}

	clip.ResampleTo(22050)
	assert.Equal(t, 22050, clip.SampleRate)
	assert.InDelta(t, 22050, len(clip.Samples), 2)
	assert.InDelta(t, 1.0, clip.Duration(), 0.001)

	before := len(clip.Samples)
	clip.ResampleTo(22050)
	assert.Equal(t, before, len(clip.Samples))
}
