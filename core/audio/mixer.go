package audio

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"time"

	"autodj/logger"
)

// Transition placement parameters carried over from live DJ practice:
// aim for the 60% mark of the outgoing track, never later than two minutes,
// search ±15 s for a bar line that stays 2 s clear of any sung passage.
const (
	transitionFraction  = 0.6
	maxTransitionSec    = 120.0
	transitionSearchSec = 15.0
	vocalClearanceSec   = 2.0
	beatsPerBar         = 4
)

// MixOptions configures the Mixer.
type MixOptions struct {
	CrossfadeMs    int     // Crossfade length in milliseconds
	TempoWindowSec float64 // Seconds of outgoing audio that get tempo-nudged
	MaxTempoShift  float64 // Clamp for the tempo ratio, e.g. 0.05
	SfxPath        string  // Optional SFX file overlaid at each transition
	Bitrate        string  // MP3 output bitrate, e.g. "192k"
}

// MixResult describes a finished mix.
type MixResult struct {
	OutputPath  string
	Duration    float64 // Seconds
	TransitionA float64 // Transition point inside track 1, seconds
	TransitionB float64 // Transition point inside track 2, seconds
	Elapsed     time.Duration
}

// Mixer builds beat-matched multi-track mixes.
type Mixer struct {
	proc Processor
	opts MixOptions
}

// NewMixer creates a Mixer on top of an audio processor.
func NewMixer(proc Processor, opts MixOptions) *Mixer {
	if opts.CrossfadeMs <= 0 {
		opts.CrossfadeMs = 3000
	}
	if opts.TempoWindowSec <= 0 {
		opts.TempoWindowSec = 8.0
	}
	if opts.MaxTempoShift <= 0 {
		opts.MaxTempoShift = 0.05
	}
	if opts.Bitrate == "" {
		opts.Bitrate = "192k"
	}
	return &Mixer{proc: proc, opts: opts}
}

// trackAnalysis bundles everything the mixer needs to know about one track.
type trackAnalysis struct {
	path     string
	clip     *Clip
	bpm      float64
	beats    []float64
	sections []Section
}

// analyze decodes a track twice (full and vocal band) and derives tempo,
// beat grid and sung sections.
func (m *Mixer) analyze(ctx context.Context, path string) (*trackAnalysis, error) {
	clip, err := m.proc.DecodePCM(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("empty audio in %s", path)
	}

	band, err := m.proc.DecodeBand(ctx, path, VocalBandLowHz, VocalBandHighHz)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vocal band of %s: %w", path, err)
	}

	env := OnsetEnvelope(clip.Samples)
	bpm := EstimateTempo(env, clip.SampleRate)
	beats := BeatTimes(env, clip.SampleRate, bpm)
	sections := DetectSungSections(band, VocalEnergyThreshold, MinSectionDuration, MaxSectionDuration)

	logger.Info("track analyzed",
		logger.String("file", filepath.Base(path)),
		logger.Float64("bpm", bpm),
		logger.Int("beats", len(beats)),
		logger.Int("sungSections", len(sections)))

	return &trackAnalysis{path: path, clip: clip, bpm: bpm, beats: beats, sections: sections}, nil
}

// TransitionPoint picks where to leave a track: around the 60% mark
// (capped at two minutes), snapped to a safe bar line.
func TransitionPoint(duration float64, beats []float64, sections []Section) float64 {
	candidate := duration * transitionFraction
	if candidate > maxTransitionSec {
		candidate = maxTransitionSec
	}
	return SafeTransitionPoint(beats, sections, candidate, transitionSearchSec)
}

// SafeTransitionPoint finds a bar line near the candidate that avoids sung
// passages. Bar lines within the search radius are tried nearest-first; a
// bar is safe when it is at least vocalClearanceSec away from every section
// boundary and not inside a section. Falls back to the candidate itself.
func SafeTransitionPoint(beats []float64, sections []Section, candidate, radius float64) float64 {
	var bars []float64
	for i := 0; i < len(beats); i += beatsPerBar {
		t := beats[i]
		if t >= candidate-radius && t <= candidate+radius {
			bars = append(bars, t)
		}
	}

	sort.Slice(bars, func(i, j int) bool {
		return math.Abs(bars[i]-candidate) < math.Abs(bars[j]-candidate)
	})

	for _, bar := range bars {
		safe := true
		for _, s := range sections {
			if math.Abs(bar-s.Start) < vocalClearanceSec ||
				math.Abs(bar-s.End) < vocalClearanceSec ||
				(s.Start < bar && bar < s.End) {
				safe = false
				break
			}
		}
		if safe {
			return bar
		}
	}

	return candidate
}

// ClampTempoRatio computes the playback ratio that moves srcBPM toward
// tgtBPM, clamped to ±maxShift. Degenerate BPM values collapse to 1.0.
func ClampTempoRatio(srcBPM, tgtBPM, maxShift float64) float64 {
	if srcBPM <= 0 || tgtBPM <= 0 {
		return 1.0
	}
	ratio := tgtBPM / srcBPM
	if ratio < 1.0-maxShift {
		ratio = 1.0 - maxShift
	}
	if ratio > 1.0+maxShift {
		ratio = 1.0 + maxShift
	}
	return ratio
}

// applyOutgoingTempo nudges the tempo of the outgoing track over the last
// window before the transition so the incoming track lands on a matching
// pulse. The stretch is a plain resample; the ratio clamp keeps the pitch
// drift inside audibly acceptable bounds.
func (m *Mixer) applyOutgoingTempo(clip *Clip, transition float64, srcBPM, tgtBPM float64) {
	ratio := ClampTempoRatio(srcBPM, tgtBPM, m.opts.MaxTempoShift)
	if ratio == 1.0 {
		return
	}

	startSec := transition - m.opts.TempoWindowSec
	if startSec < 0 {
		startSec = 0
	}
	start := clip.SampleAt(startSec)
	end := clip.SampleAt(transition)
	if end <= start {
		return
	}

	stretched := Resample(clip.Samples[start:end], ratio)

	out := make([]float32, 0, start+len(stretched)+len(clip.Samples)-end)
	out = append(out, clip.Samples[:start]...)
	out = append(out, stretched...)
	out = append(out, clip.Samples[end:]...)
	clip.Samples = out
}

// CrossfadeAppend joins two buffers with an equal-power crossfade of
// fadeSamples. The fade is shortened when either buffer is too small.
func CrossfadeAppend(a, b []float32, fadeSamples int) []float32 {
	if fadeSamples > len(a) {
		fadeSamples = len(a)
	}
	if fadeSamples > len(b) {
		fadeSamples = len(b)
	}
	if fadeSamples < 0 {
		fadeSamples = 0
	}

	out := make([]float32, len(a)+len(b)-fadeSamples)
	copy(out, a[:len(a)-fadeSamples])

	base := len(a) - fadeSamples
	for i := 0; i < fadeSamples; i++ {
		x := float64(i) / float64(fadeSamples)
		gainOut := float32(math.Cos(x * math.Pi / 2))
		gainIn := float32(math.Sin(x * math.Pi / 2))
		out[base+i] = a[base+i]*gainOut + b[i]*gainIn
	}

	copy(out[len(a):], b[fadeSamples:])
	return out
}

// Overlay mixes sfx into dst starting at pos, clamping to [-1, 1].
func Overlay(dst, sfx []float32, pos int) {
	if pos < 0 {
		pos = 0
	}
	for i, s := range sfx {
		j := pos + i
		if j >= len(dst) {
			break
		}
		v := dst[j] + s
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		dst[j] = v
	}
}

// MixThree builds a mix out of three tracks and encodes it to outputPath.
func (m *Mixer) MixThree(ctx context.Context, path1, path2, path3, outputPath string) (*MixResult, error) {
	started := time.Now()

	a1, err := m.analyze(ctx, path1)
	if err != nil {
		return nil, err
	}
	a2, err := m.analyze(ctx, path2)
	if err != nil {
		return nil, err
	}
	a3, err := m.analyze(ctx, path3)
	if err != nil {
		return nil, err
	}

	// Align everything to the first track's sample rate.
	rate := a1.clip.SampleRate
	a2.clip.ResampleTo(rate)
	a3.clip.ResampleTo(rate)

	t1 := TransitionPoint(a1.clip.Duration(), a1.beats, a1.sections)
	t2 := TransitionPoint(a2.clip.Duration(), a2.beats, a2.sections)

	logger.Info("transition points chosen",
		logger.Float64("t1", t1),
		logger.Float64("t2", t2))

	// Nudge each outgoing track toward the incoming track's tempo.
	m.applyOutgoingTempo(a1.clip, t1, a1.bpm, a2.bpm)
	m.applyOutgoingTempo(a2.clip, t2, a2.bpm, a3.bpm)

	fadeSamples := m.opts.CrossfadeMs * rate / 1000

	var sfx []float32
	if m.opts.SfxPath != "" {
		sfxClip, err := m.proc.DecodePCM(ctx, m.opts.SfxPath)
		if err != nil {
			logger.Warn("failed to load DJ SFX, continuing without it",
				logger.String("path", m.opts.SfxPath),
				logger.ErrorField(err))
		} else {
			sfxClip.ResampleTo(rate)
			sfx = sfxClip.Samples
		}
	}

	// Track 1 up to its transition point, crossfaded into track 2.
	part1 := a1.clip.Samples[:a1.clip.SampleAt(t1)]
	mix12 := CrossfadeAppend(part1, a2.clip.Samples, fadeSamples)

	if sfx != nil {
		Overlay(mix12, sfx, len(part1)-fadeSamples)
	}

	// Trim the pair where track 2 reaches its own transition point.
	cut := len(part1) - fadeSamples + a2.clip.SampleAt(t2)
	if cut < 0 {
		cut = 0
	}
	if cut > len(mix12) {
		cut = len(mix12)
	}
	mix12 = mix12[:cut]

	if sfx != nil {
		Overlay(mix12, sfx, cut-fadeSamples)
	}

	// Final crossfade into track 3, which plays out to its end.
	final := CrossfadeAppend(mix12, a3.clip.Samples, fadeSamples)

	out := &Clip{Samples: final, SampleRate: rate}
	if err := m.proc.EncodeMP3(ctx, out, outputPath, m.opts.Bitrate); err != nil {
		return nil, err
	}

	result := &MixResult{
		OutputPath:  outputPath,
		Duration:    out.Duration(),
		TransitionA: t1,
		TransitionB: t2,
		Elapsed:     time.Since(started),
	}

	logger.Info("mix complete",
		logger.String("output", outputPath),
		logger.Float64("duration", result.Duration),
		logger.Duration("elapsed", result.Elapsed))

	return result, nil
}
