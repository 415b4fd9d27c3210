package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clickTrack builds a synthetic signal with short full-scale bursts at the
// given BPM, which is enough structure for the tempo and beat detectors.
func clickTrack(durationSec float64, sampleRate int, bpm float64) []float32 {
	samples := make([]float32, int(durationSec*float64(sampleRate)))
	beatInterval := int(60.0 / bpm * float64(sampleRate))
	burst := 512

	for start := 0; start < len(samples); start += beatInterval {
		for i := start; i < start+burst && i < len(samples); i++ {
			samples[i] = 1.0
		}
	}
	return samples
}

// TestRMSEnergy verifies frame count and that silence yields zero energy.
func TestRMSEnergy(t *testing.T) {
	silence := make([]float32, FrameSize+HopSize*3)
	energy := RMSEnergy(silence)
	require.Len(t, energy, 4)
	for _, e := range energy {
		assert.Zero(t, e)
	}

	// Too short for a single frame.
	assert.Nil(t, RMSEnergy(make([]float32, FrameSize-1)))

	// Constant full-scale signal has RMS 1.
	loud := make([]float32, FrameSize)
	for i := range loud {
		loud[i] = 1.0
	}
	energy = RMSEnergy(loud)
	require.Len(t, energy, 1)
	assert.InDelta(t, 1.0, energy[0], 1e-6)
}

// TestEstimateTempo_ClickTrack checks that a synthetic 120 BPM click track
// is detected close to its true tempo.
func TestEstimateTempo_ClickTrack(t *testing.T) {
	samples := clickTrack(20, MixSampleRate, 120)
	env := OnsetEnvelope(samples)
	require.NotEmpty(t, env)

	bpm := EstimateTempo(env, MixSampleRate)
	assert.InDelta(t, 120, bpm, 5)
}

// TestEstimateTempo_Fallback verifies the default tempo is returned for
// signals too short or too flat to analyze.
func TestEstimateTempo_Fallback(t *testing.T) {
	assert.Equal(t, DefaultTempoBPM, EstimateTempo(nil, MixSampleRate))
	assert.Equal(t, DefaultTempoBPM, EstimateTempo(make([]float64, 10), MixSampleRate))

	// Long but silent: no autocorrelation peak.
	silentEnv := make([]float64, 2000)
	assert.Equal(t, DefaultTempoBPM, EstimateTempo(silentEnv, MixSampleRate))
}

// TestBeatTimes_Spacing verifies the beat grid is evenly spaced at the
// beat period of the given tempo.
func TestBeatTimes_Spacing(t *testing.T) {
	samples := clickTrack(20, MixSampleRate, 120)
	env := OnsetEnvelope(samples)

	bpm := EstimateTempo(env, MixSampleRate)
	beats := BeatTimes(env, MixSampleRate, bpm)
	require.Greater(t, len(beats), 10)

	period := 60.0 / bpm
	for i := 1; i < len(beats); i++ {
		assert.InDelta(t, period, beats[i]-beats[i-1], 0.05)
	}
}

// TestBeatTimes_Degenerate verifies nil is returned for unusable inputs.
func TestBeatTimes_Degenerate(t *testing.T) {
	assert.Nil(t, BeatTimes(nil, MixSampleRate, 120))
	assert.Nil(t, BeatTimes(make([]float64, 100), MixSampleRate, 0))
}

// section builds a band clip with constant amplitude over given intervals.
func sectionClip(durationSec float64, sampleRate int, loud []Section) *Clip {
	samples := make([]float32, int(durationSec*float64(sampleRate)))
	for _, s := range loud {
		start := int(s.Start * float64(sampleRate))
		end := int(s.End * float64(sampleRate))
		for i := start; i < end && i < len(samples); i++ {
			samples[i] = 0.5
		}
	}
	return &Clip{Samples: samples, SampleRate: sampleRate}
}

// TestDetectSungSections finds a sustained passage and rejects bursts that
// are too short or too long.
func TestDetectSungSections(t *testing.T) {
	clip := sectionClip(30, MixSampleRate, []Section{
		{Start: 2, End: 8},   // 6s, kept
		{Start: 12, End: 13}, // 1s, too short
	})

	sections := DetectSungSections(clip, VocalEnergyThreshold, MinSectionDuration, MaxSectionDuration)
	require.Len(t, sections, 1)
	assert.InDelta(t, 2.0, sections[0].Start, 0.2)
	assert.InDelta(t, 8.0, sections[0].End, 0.2)
}

// TestDetectSungSections_TrailingOpen verifies a section running to the end
// of the clip is closed and kept.
func TestDetectSungSections_TrailingOpen(t *testing.T) {
	clip := sectionClip(20, MixSampleRate, []Section{
		{Start: 14, End: 20},
	})

	sections := DetectSungSections(clip, VocalEnergyThreshold, MinSectionDuration, MaxSectionDuration)
	require.Len(t, sections, 1)
	assert.InDelta(t, 14.0, sections[0].Start, 0.2)
	assert.InDelta(t, 20.0, sections[0].End, 0.2)
}

// TestDetectSungSections_TooLong verifies dense passages over the maximum
// duration are not treated as isolated vocal phrases.
func TestDetectSungSections_TooLong(t *testing.T) {
	clip := sectionClip(30, MixSampleRate, []Section{
		{Start: 2, End: 25}, // 23s, over the max
	})

	sections := DetectSungSections(clip, VocalEnergyThreshold, MinSectionDuration, MaxSectionDuration)
	assert.Empty(t, sections)
}
