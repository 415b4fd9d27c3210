package audio

import "math"

// Analysis frame geometry and tempo search range.
const (
	FrameSize = 2048
	HopSize   = 512

	minTempoBPM     = 60.0
	maxTempoBPM     = 180.0
	DefaultTempoBPM = 120.0

	// Band where vocals carry most of their energy.
	VocalBandLowHz  = 200
	VocalBandHighHz = 4000

	// Sung-section detection parameters.
	VocalEnergyThreshold = 0.01
	MinSectionDuration   = 4.0
	MaxSectionDuration   = 16.0
)

// Section is a time interval in seconds.
type Section struct {
	Start float64
	End   float64
}

// FrameTime returns the time in seconds of analysis frame i.
func FrameTime(i, sampleRate int) float64 {
	return float64(i*HopSize) / float64(sampleRate)
}

// RMSEnergy computes the per-frame root-mean-square energy of the signal.
func RMSEnergy(samples []float32) []float64 {
	if len(samples) < FrameSize {
		return nil
	}

	frames := 1 + (len(samples)-FrameSize)/HopSize
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		start := i * HopSize
		var sum float64
		for _, s := range samples[start : start+FrameSize] {
			sum += float64(s) * float64(s)
		}
		out[i] = math.Sqrt(sum / FrameSize)
	}
	return out
}

// OnsetEnvelope computes a half-wave rectified energy flux: the positive
// frame-to-frame increase in RMS energy. Peaks line up with note onsets.
func OnsetEnvelope(samples []float32) []float64 {
	energy := RMSEnergy(samples)
	if len(energy) == 0 {
		return nil
	}

	env := make([]float64, len(energy))
	for i := 1; i < len(energy); i++ {
		diff := energy[i] - energy[i-1]
		if diff > 0 {
			env[i] = diff
		}
	}
	return env
}

// EstimateTempo estimates the tempo in BPM by autocorrelating the onset
// envelope over the plausible beat-period range. Falls back to
// DefaultTempoBPM when the envelope is too short or flat to score.
func EstimateTempo(env []float64, sampleRate int) float64 {
	framesPerSec := float64(sampleRate) / HopSize
	minLag := int(framesPerSec * 60.0 / maxTempoBPM)
	maxLag := int(framesPerSec * 60.0 / minTempoBPM)

	if minLag < 1 || len(env) <= maxLag*2 {
		return DefaultTempoBPM
	}

	bestLag := 0
	bestScore := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := 0; i+lag < len(env); i++ {
			score += env[i] * env[i+lag]
		}
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	if bestLag == 0 || bestScore == 0 {
		return DefaultTempoBPM
	}

	return 60.0 * framesPerSec / float64(bestLag)
}

// BeatTimes lays a beat grid at the given tempo, choosing the phase offset
// that best aligns with onset envelope peaks.
func BeatTimes(env []float64, sampleRate int, bpm float64) []float64 {
	if bpm <= 0 || len(env) == 0 {
		return nil
	}

	framesPerSec := float64(sampleRate) / HopSize
	period := framesPerSec * 60.0 / bpm
	if period < 1 {
		return nil
	}

	// Score each candidate phase by summed onset strength on its grid.
	bestPhase := 0
	bestScore := -1.0
	for phase := 0; phase < int(period); phase++ {
		var score float64
		for pos := float64(phase); pos < float64(len(env)); pos += period {
			score += env[int(pos)]
		}
		if score > bestScore {
			bestScore = score
			bestPhase = phase
		}
	}

	var beats []float64
	for pos := float64(bestPhase); pos < float64(len(env)); pos += period {
		beats = append(beats, FrameTime(int(pos), sampleRate))
	}
	return beats
}

// DetectSungSections finds stretches of sustained energy in a band-passed
// clip: likely sung passages that transitions must not cut through.
// Sections shorter than minDur are noise, longer than maxDur are treated as
// dense arrangement rather than an isolated vocal phrase; both are dropped.
func DetectSungSections(band *Clip, threshold, minDur, maxDur float64) []Section {
	energy := RMSEnergy(band.Samples)
	if len(energy) == 0 {
		return nil
	}

	var sections []Section
	start := -1.0

	for i, e := range energy {
		t := FrameTime(i, band.SampleRate)
		if e > threshold {
			if start < 0 {
				start = t
			}
			continue
		}
		if start >= 0 {
			dur := t - start
			if dur >= minDur && dur <= maxDur {
				sections = append(sections, Section{Start: start, End: t})
			}
			start = -1
		}
	}

	// Close a section still open at the end of the clip.
	if start >= 0 {
		end := FrameTime(len(energy)-1, band.SampleRate)
		dur := end - start
		if dur >= minDur && dur <= maxDur {
			sections = append(sections, Section{Start: start, End: end})
		}
	}

	return sections
}
