package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Engine wraps the external media binaries (ffmpeg/ffprobe). Resolved once
// at startup and used read-only; all state flows through arguments.
type Engine struct {
	FFmpeg  string
	FFprobe string

	once    sync.Once
	filters map[string]bool
}

// NewEngine resolves the media binaries from the configured paths, falling
// back to a PATH lookup.
func NewEngine(ffmpegBin, ffprobeBin string) *Engine {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Engine{FFmpeg: ffmpegBin, FFprobe: ffprobeBin}
}

// HasFilter reports whether the engine build ships the named filter.
// The filter list is probed once and cached.
func (e *Engine) HasFilter(name string) bool {
	e.once.Do(func() {
		e.filters = map[string]bool{}
		out, err := exec.Command(e.FFmpeg, "-hide_banner", "-filters").Output()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(out), "\n") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				e.filters[fields[1]] = true
			}
		}
	})
	return e.filters[name]
}

// ProbeFormat reports duration in milliseconds, sample rate, and channel
// count of the first audio stream.
func (e *Engine) ProbeFormat(ctx context.Context, path string) (durationMs, sampleRate, channels int, err error) {
	out, err := exec.CommandContext(ctx, e.FFprobe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels:format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	).Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "sample_rate":
			sampleRate, _ = strconv.Atoi(val)
		case "channels":
			channels, _ = strconv.Atoi(val)
		case "duration":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				durationMs = int(f * 1000)
			}
		}
	}
	if sampleRate == 0 || channels == 0 {
		return 0, 0, 0, fmt.Errorf("ffprobe %s: no audio stream", path)
	}
	return durationMs, sampleRate, channels, nil
}

// DecodeFile decodes an audio file to raw PCM int16 at the requested format.
func (e *Engine) DecodeFile(ctx context.Context, path string, sampleRate, channels int) (*Buffer, error) {
	cmd := exec.CommandContext(ctx, e.FFmpeg,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "error",
		"pipe:1",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	return bytesToBuffer(out, sampleRate, channels), nil
}

// DecodeBytes decodes an in-memory compressed stream (e.g. MPEG audio from
// the TTS service) to raw PCM at the requested format.
func (e *Engine) DecodeBytes(ctx context.Context, data []byte, sampleRate, channels int) (*Buffer, error) {
	cmd := exec.CommandContext(ctx, e.FFmpeg,
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode stream: %w", err)
	}
	return bytesToBuffer(out, sampleRate, channels), nil
}

// Filter pipes a buffer through an ffmpeg audio filter chain and returns the
// filtered buffer in the same format.
func (e *Engine) Filter(ctx context.Context, buf *Buffer, filter string) (*Buffer, error) {
	cmd := exec.CommandContext(ctx, e.FFmpeg,
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
		"-af", filter,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(bufferToBytes(buf))
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg filter %q: %w", filter, err)
	}
	return bytesToBuffer(out, buf.SampleRate, buf.Channels), nil
}

// Atempo retimes a buffer by the given tempo factor using chained atempo
// stages. Each stage stays within ffmpeg's [0.5, 2.0] bounds; the terminal
// stage carries the residual factor.
func (e *Engine) Atempo(ctx context.Context, buf *Buffer, factor float64) (*Buffer, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("atempo: factor must be positive, got %f", factor)
	}
	return e.Filter(ctx, buf, AtempoChain(factor))
}

// AtempoChain builds the chained atempo filter string for a tempo factor.
func AtempoChain(factor float64) string {
	var stages []string
	for factor > 2.0 {
		stages = append(stages, "atempo=2.0")
		factor /= 2.0
	}
	for factor < 0.5 {
		stages = append(stages, "atempo=0.5")
		factor /= 0.5
	}
	stages = append(stages, fmt.Sprintf("atempo=%.6f", factor))
	return strings.Join(stages, ",")
}

// EncodeMP3 encodes a buffer to an MP3 file with an explicit duration cap.
func (e *Engine) EncodeMP3(ctx context.Context, buf *Buffer, outPath, bitrate string, capSeconds float64) error {
	cmd := exec.CommandContext(ctx, e.FFmpeg, "-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", bitrate,
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-t", fmt.Sprintf("%.6f", capSeconds),
		"-shortest",
		"-loglevel", "error",
		outPath,
	)
	cmd.Stdin = bytes.NewReader(bufferToBytes(buf))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w", outPath, err)
	}
	return nil
}

func bytesToBuffer(out []byte, sampleRate, channels int) *Buffer {
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}
	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

func bufferToBytes(buf *Buffer) []byte {
	out := make([]byte, len(buf.Samples)*2)
	for i, s := range buf.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
