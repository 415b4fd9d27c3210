package audio

// Clip is a mono PCM buffer with its sample rate.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// SampleAt converts a time in seconds to a clamped sample index.
func (c *Clip) SampleAt(sec float64) int {
	idx := int(sec * float64(c.SampleRate))
	if idx < 0 {
		return 0
	}
	if idx > len(c.Samples) {
		return len(c.Samples)
	}
	return idx
}

// Resample converts samples to a new length by linear interpolation.
// ratio is a speed factor: ratio > 1 shortens the buffer (faster playback),
// ratio < 1 lengthens it. Used both for tempo nudging and for aligning
// clips recorded at different sample rates.
func Resample(samples []float32, ratio float64) []float32 {
	if ratio <= 0 || len(samples) == 0 {
		return samples
	}

	outLen := int(float64(len(samples)) / ratio)
	if outLen <= 0 {
		return []float32{}
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		left := int(pos)
		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(left))
		out[i] = samples[left]*(1-frac) + samples[left+1]*frac
	}
	return out
}

// ResampleTo converts the clip to the target sample rate in place.
func (c *Clip) ResampleTo(rate int) {
	if rate <= 0 || rate == c.SampleRate {
		return
	}
	c.Samples = Resample(c.Samples, float64(c.SampleRate)/float64(rate))
	c.SampleRate = rate
}
