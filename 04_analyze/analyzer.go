package analyze

import (
	"context"
	"log"

	"journey-pipeline/audio"
	"journey-pipeline/config"
	"journey-pipeline/types"
)

const smoothHalfWidth = 4 // moving-average half width k; window is 2k+1

// Analyzer decodes the chosen stem and estimates where its principal energy
// rise ("drop") sits. It never fails beyond reporting no drop: decode errors
// are the only fatal path, since duration and format drive every downstream
// sample-count computation.
type Analyzer struct {
	cfg    *config.Config
	engine *audio.Engine
}

// New creates an Analyzer backed by the media engine.
func New(cfg *config.Config, engine *audio.Engine) *Analyzer {
	return &Analyzer{cfg: cfg, engine: engine}
}

// Run analyzes the track at path.
func (a *Analyzer) Run(ctx context.Context, path string) (*types.Analysis, error) {
	_, rate, channels, err := a.engine.ProbeFormat(ctx, path)
	if err != nil {
		return nil, types.E(types.ErrDecode, "analyze", err)
	}

	buf, err := a.engine.DecodeFile(ctx, path, rate, channels)
	if err != nil {
		return nil, types.E(types.ErrDecode, "analyze", err)
	}

	windowMs := a.cfg.Music.WindowMs
	if windowMs < 50 {
		windowMs = 50
	}

	an := &types.Analysis{
		DurationMs:  buf.DurationMs(),
		SampleRate:  rate,
		Channels:    channels,
		SampleWidth: 2,
		WindowMs:    windowMs,
	}
	an.DropMs, an.HasDrop = EstimateDrop(buf, windowMs)

	if an.HasDrop {
		log.Printf("[analyze] %dms, %dHz x%d, drop at %dms", an.DurationMs, rate, channels, an.DropMs)
	} else {
		log.Printf("[analyze] %dms, %dHz x%d, no drop detected", an.DurationMs, rate, channels)
	}
	return an, nil
}

// EstimateDrop finds the window with the largest rise in smoothed RMS
// energy, restricted to the first 80% of windows. Returns (ms, false) when
// the signal yields fewer than two windows.
func EstimateDrop(buf *audio.Buffer, windowMs int) (int, bool) {
	rms := WindowRMS(buf, windowMs)
	if len(rms) < 2 {
		return 0, false
	}

	sm := smooth(rms, smoothHalfWidth)

	// First differences; diff[i] is the rise into window i+1.
	limit := len(sm) * 8 / 10
	if limit < 2 {
		limit = 2
	}
	bestIdx, bestRise := 1, sm[1]-sm[0]
	for i := 2; i < limit; i++ {
		if rise := sm[i] - sm[i-1]; rise > bestRise {
			bestRise = rise
			bestIdx = i
		}
	}
	return bestIdx * windowMs, true
}

// WindowRMS segments the signal into non-overlapping windows of windowMs and
// reports per-window RMS in dBFS.
func WindowRMS(buf *audio.Buffer, windowMs int) []float64 {
	step := buf.SampleRate * windowMs / 1000 * buf.Channels
	if step <= 0 {
		return nil
	}
	var out []float64
	for pos := 0; pos+step <= len(buf.Samples); pos += step {
		out = append(out, buf.RMSDB(pos, pos+step))
	}
	return out
}

// smooth applies a symmetric moving average of width 2k+1, shrinking the
// window at the edges.
func smooth(v []float64, k int) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		lo, hi := i-k, i+k
		if lo < 0 {
			lo = 0
		}
		if hi >= len(v) {
			hi = len(v) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += v[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
