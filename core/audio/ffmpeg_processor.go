package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"autodj/logger"
)

// MixSampleRate is the working sample rate for all analysis and mixing.
const MixSampleRate = 44100

// FFmpegProcessor implements the Processor interface using ffmpeg/ffprobe.
type FFmpegProcessor struct {
	ffmpegPath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
func NewFFmpegProcessor(ffmpegPath string) *FFmpegProcessor {
	return &FFmpegProcessor{ffmpegPath: ffmpegPath}
}

// FFmpegPath returns the configured ffmpeg binary path.
func (p *FFmpegProcessor) FFmpegPath() string {
	return p.ffmpegPath
}

func (p *FFmpegProcessor) ffprobePath() string {
	return strings.Replace(p.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration uses ffprobe to get the duration of an audio file in seconds.
func (p *FFmpegProcessor) Duration(ctx context.Context, inputFile string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath(), args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", inputFile, err)
	}

	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s", inputFile)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q for %s: %w", probeData.Format.Duration, inputFile, err)
	}

	return duration, nil
}

// CodecName uses ffprobe to detect the codec of the first audio stream.
func (p *FFmpegProcessor) CodecName(ctx context.Context, inputFile string) (string, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath(), args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}

	var probeData struct {
		Streams []struct {
			CodecName string `json:"codec_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return "", fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	if len(probeData.Streams) == 0 {
		return "", fmt.Errorf("no audio streams found in file")
	}

	return probeData.Streams[0].CodecName, nil
}

// DecodePCM decodes an audio file to mono float32 PCM at MixSampleRate.
func (p *FFmpegProcessor) DecodePCM(ctx context.Context, inputFile string) (*Clip, error) {
	return p.decode(ctx, inputFile, nil)
}

// DecodeBand decodes like DecodePCM but applies highpass/lowpass filters
// first, isolating the band where vocals carry most of their energy.
func (p *FFmpegProcessor) DecodeBand(ctx context.Context, inputFile string, lowHz, highHz int) (*Clip, error) {
	filter := fmt.Sprintf("highpass=f=%d,lowpass=f=%d", lowHz, highHz)
	return p.decode(ctx, inputFile, []string{"-af", filter})
}

func (p *FFmpegProcessor) decode(ctx context.Context, inputFile string, extraArgs []string) (*Clip, error) {
	args := []string{
		"-v", "error",
		"-i", inputFile,
	}
	args = append(args, extraArgs...)
	args = append(args,
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(MixSampleRate),
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed for %s: %w\nFFmpeg Error: %s", inputFile, err, stderr.String())
	}

	raw := out.Bytes()
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}

	logger.Debug("decoded pcm",
		logger.String("file", filepath.Base(inputFile)),
		logger.Int("samples", len(samples)))

	return &Clip{Samples: samples, SampleRate: MixSampleRate}, nil
}

// EncodeMP3 encodes a PCM clip to an MP3 file at the given bitrate.
func (p *FFmpegProcessor) EncodeMP3(ctx context.Context, clip *Clip, outputFile, bitrate string) error {
	outputDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	args := []string{
		"-y",
		"-v", "error",
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(clip.SampleRate),
		"-i", "pipe:0",
		"-c:a", "libmp3lame",
		"-b:a", bitrate,
		outputFile,
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	raw := make([]byte, len(clip.Samples)*4)
	for i, s := range clip.Samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	cmd.Stdin = bytes.NewReader(raw)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode failed for %s: %w\nFFmpeg Error: %s", outputFile, err, stderr.String())
	}

	logger.Info("encoded mp3",
		logger.String("file", outputFile),
		logger.Float64("duration", clip.Duration()))
	return nil
}
