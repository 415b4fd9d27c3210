package audio

import "context"

// Processor defines an interface for ffmpeg-backed audio operations.
type Processor interface {
	// Duration returns the length of an audio file in seconds.
	Duration(ctx context.Context, inputFile string) (float64, error)
	// DecodePCM decodes an audio file to mono float32 PCM.
	DecodePCM(ctx context.Context, inputFile string) (*Clip, error)
	// DecodeBand decodes like DecodePCM but band-passes the signal first.
	DecodeBand(ctx context.Context, inputFile string, lowHz, highHz int) (*Clip, error)
	// EncodeMP3 encodes a PCM clip to an MP3 file at the given bitrate, e.g. "192k".
	EncodeMP3(ctx context.Context, clip *Clip, outputFile, bitrate string) error
}
