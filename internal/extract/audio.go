package extract

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
)

const ffprobeBin = "ffprobe"

var audioExtensions = map[string]string{
	ContentTypeFLAC: ".flac",
	ContentTypeMPEG: ".mp3",
	ContentTypeMP3:  ".mp3",
	ContentTypeM4A:  ".m4a",
	ContentTypeXM4A: ".m4a",
	ContentTypeOGG:  ".ogg",
	ContentTypeWAV:  ".wav",
	ContentTypeXWAV: ".wav",
	ContentTypeWEBM: ".webm",
}

// AudioContentTypes lists the audio types accepted for transcription.
func AudioContentTypes() []string {
	return []string{
		ContentTypeFLAC, ContentTypeMPEG, ContentTypeMP3, ContentTypeM4A, ContentTypeXM4A,
		ContentTypeOGG, ContentTypeWAV, ContentTypeXWAV, ContentTypeWEBM,
	}
}

// AudioExtension maps an audio content type to the file extension sent to
// the transcription service, defaulting to ".wav".
func AudioExtension(contentType string) string {
	if ext, ok := audioExtensions[NormalizeContentType(contentType)]; ok {
		return ext
	}
	return ".wav"
}

// TranscriptionRequest is one audio upload for the speech-to-text service.
type TranscriptionRequest struct {
	FileName    string
	ContentType string
	Audio       io.Reader
}

// Transcription is the speech-to-text answer.
type Transcription struct {
	Text     string
	Language string
}

// Transcriber is the remote speech-to-text collaborator. A non-success
// answer must be reported as a *domain.TranscriptionError.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*Transcription, error)
}

// DurationProbe measures the playback length of an audio file.
type DurationProbe interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FFProbe reads the container duration with ffprobe.
type FFProbe struct {
	runner CommandRunner
}

func NewFFProbe(runner CommandRunner) *FFProbe {
	return &FFProbe{runner: runner}
}

func (p *FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := p.runner.Run(ctx, ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probing audio duration: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("unexpected ffprobe duration %q", strings.TrimSpace(string(out)))
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// AudioConfig holds the pre-transcription limits.
type AudioConfig struct {
	MaxBytes    int64
	MaxDuration time.Duration
}

// AudioExtractor validates size and duration locally, then forwards the
// audio to the Transcriber. Limit violations never reach the network.
type AudioExtractor struct {
	cfg         AudioConfig
	probe       DurationProbe
	transcriber Transcriber
}

func NewAudioExtractor(cfg AudioConfig, probe DurationProbe, transcriber Transcriber) *AudioExtractor {
	return &AudioExtractor{cfg: cfg, probe: probe, transcriber: transcriber}
}

func (e *AudioExtractor) Extract(ctx context.Context, src Source) (*Result, error) {
	size := src.Size
	if size <= 0 {
		info, err := os.Stat(src.Path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", src.FileName, err)
		}
		size = info.Size()
	}

	if e.cfg.MaxBytes > 0 && size > e.cfg.MaxBytes {
		return nil, domain.WithCause(domain.ErrPayloadTooLarge,
			fmt.Errorf("file too large: file should be less than %d MB", e.cfg.MaxBytes/(1024*1024)))
	}

	duration, err := e.probe.Duration(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	if e.cfg.MaxDuration > 0 && duration > e.cfg.MaxDuration {
		return nil, domain.WithCause(domain.ErrDurationExceeded,
			fmt.Errorf("audio too long: audio should be less than %d min", int(e.cfg.MaxDuration/time.Minute)))
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src.FileName, err)
	}
	defer f.Close()

	transcript, err := e.transcriber.Transcribe(ctx, TranscriptionRequest{
		FileName:    "audio" + AudioExtension(src.ContentType),
		ContentType: src.ContentType,
		Audio:       f,
	})
	if err != nil {
		return nil, err
	}

	language := transcript.Language
	if language == "" {
		language = "unknown"
	}

	return &Result{
		Text:        transcript.Text,
		DurationMin: math.Round(duration.Minutes()*100) / 100,
		Language:    language,
	}, nil
}
