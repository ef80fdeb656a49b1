package audio

import (
	"math"
	"time"
)

const (
	// MixRate and MixChannels are the reference format of the whole graph.
	// Every buffer entering the mixer is normalized to this format first.
	MixRate     = 44100
	MixChannels = 2
)

// Buffer is interleaved 16-bit PCM audio.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Silence returns a buffer of ms milliseconds of silence.
func Silence(ms, sampleRate, channels int) *Buffer {
	n := sampleRate * ms / 1000 * channels
	return &Buffer{Samples: make([]int16, n), SampleRate: sampleRate, Channels: channels}
}

// SamplesPerChannel returns the sample count of one channel.
func (b *Buffer) SamplesPerChannel() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// DurationMs returns the playback duration in whole milliseconds.
func (b *Buffer) DurationMs() int {
	if b.SampleRate == 0 {
		return 0
	}
	return int(int64(b.SamplesPerChannel()) * 1000 / int64(b.SampleRate))
}

// Duration returns the playback duration.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.DurationMs()) * time.Millisecond
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	s := make([]int16, len(b.Samples))
	copy(s, b.Samples)
	return &Buffer{Samples: s, SampleRate: b.SampleRate, Channels: b.Channels}
}

// Append concatenates other onto b. Formats must match.
func (b *Buffer) Append(other *Buffer) {
	b.Samples = append(b.Samples, other.Samples...)
}

// Gain applies a dB gain in place, clipping to int16 range.
func (b *Buffer) Gain(db float64) {
	g := DBToLinear(db)
	for i, s := range b.Samples {
		b.Samples[i] = clip16(float64(s) * g)
	}
}

// RMSDB returns the RMS level in dBFS over the interleaved sample range
// [from, to). Empty or silent ranges report -120 dB.
func (b *Buffer) RMSDB(from, to int) float64 {
	if from < 0 {
		from = 0
	}
	if to > len(b.Samples) {
		to = len(b.Samples)
	}
	if to <= from {
		return -120
	}
	var sum float64
	for _, s := range b.Samples[from:to] {
		v := float64(s) / 32768.0
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(to-from))
	return LinearToDB(rms)
}

// PeakDB returns the peak sample level in dBFS.
func (b *Buffer) PeakDB() float64 {
	var peak float64
	for _, s := range b.Samples {
		v := math.Abs(float64(s) / 32768.0)
		if v > peak {
			peak = v
		}
	}
	return LinearToDB(peak)
}

// LockSamples forces the buffer to exactly perChannel samples per channel by
// trimming or appending silence. This is the sample-count lock: no stage may
// leave the buffer at any other length afterwards.
func (b *Buffer) LockSamples(perChannel int) {
	want := perChannel * b.Channels
	switch {
	case len(b.Samples) > want:
		b.Samples = b.Samples[:want]
	case len(b.Samples) < want:
		b.Samples = append(b.Samples, make([]int16, want-len(b.Samples))...)
	}
}

// FadeOut applies a linear fade over the final ms milliseconds.
func (b *Buffer) FadeOut(ms int) {
	n := b.SampleRate * ms / 1000 * b.Channels
	if n > len(b.Samples) {
		n = len(b.Samples)
	}
	start := len(b.Samples) - n
	for i := 0; i < n; i++ {
		g := 1 - float64(i)/float64(n)
		b.Samples[start+i] = clip16(float64(b.Samples[start+i]) * g)
	}
}

// Overlay sums other into b sample by sample, clipping. Lengths must already
// be locked to the same count.
func (b *Buffer) Overlay(other *Buffer) {
	n := len(b.Samples)
	if len(other.Samples) < n {
		n = len(other.Samples)
	}
	for i := 0; i < n; i++ {
		b.Samples[i] = clip16(float64(b.Samples[i]) + float64(other.Samples[i]))
	}
}

// AppendCrossfade appends next onto b with a smoothstep crossfade of fadeMs.
// The fade consumes the tail of b and the head of next.
func (b *Buffer) AppendCrossfade(next *Buffer, fadeMs int) {
	fade := b.SampleRate * fadeMs / 1000 * b.Channels
	if fade > len(b.Samples) {
		fade = len(b.Samples)
	}
	if fade > len(next.Samples) {
		fade = len(next.Samples)
	}
	start := len(b.Samples) - fade
	for i := 0; i < fade; i++ {
		g := Smoothstep(float64(i) / float64(fade))
		out := float64(b.Samples[start+i]) * (1 - g)
		in := float64(next.Samples[i]) * g
		b.Samples[start+i] = clip16(out + in)
	}
	b.Samples = append(b.Samples, next.Samples[fade:]...)
}

// Smoothstep returns the smoothstep interpolation 3t^2 - 2t^3 for t in [0,1].
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// DBToLinear converts a dB gain to a linear factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear level to dB, flooring at -120.
func LinearToDB(v float64) float64 {
	if v <= 0 {
		return -120
	}
	db := 20 * math.Log10(v)
	if db < -120 {
		return -120
	}
	return db
}

func clip16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
