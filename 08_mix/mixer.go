package mix

import (
	"context"
	"fmt"
	"log"
	"math"

	"journey-pipeline/audio"
	"journey-pipeline/config"
	"journey-pipeline/types"
)

// Mixer lays the synthesized voice over the music bed and emits the final
// MP3. Every stage after alignment re-locks both stems to the target sample
// count; no stage may silently change it.
type Mixer struct {
	cfg    *config.Config
	engine *audio.Engine
}

// New creates a Mixer backed by the media engine.
func New(cfg *config.Config, engine *audio.Engine) *Mixer {
	return &Mixer{cfg: cfg, engine: engine}
}

// Run composes music + voice into outPath and returns the final duration in
// milliseconds. Fails fast on any DSP error; no partial file survives a
// failed verification.
func (m *Mixer) Run(ctx context.Context, musicPath string, voice *audio.Buffer, outPath string) (int, error) {
	// M1: normalize references to the mix format and loudness targets.
	music, err := m.engine.DecodeFile(ctx, musicPath, audio.MixRate, audio.MixChannels)
	if err != nil {
		return 0, types.E(types.ErrDecode, "mix", err)
	}
	if len(music.Samples) == 0 {
		return 0, types.Ef(types.ErrDecode, "mix", "music decoded to zero samples: %s", musicPath)
	}
	normalizeTo(music, m.cfg.Mix.MusicTargetDB)
	normalizeTo(voice, m.cfg.Mix.VoiceTargetDB)
	log.Printf("[mix] M1 normalized: music %dms, voice %dms", music.DurationMs(), voice.DurationMs())

	// M2: cosmetic shaping. Missing filters are a non-fatal skip.
	music, voice = m.cosmetics(ctx, music, voice)

	// M3: voice-longer-than-music reconciliation.
	music, voice = Reconcile(music, voice, m.cfg.Mix.OverageTolMs)

	// M4: time alignment.
	target, music, voice, err := m.align(ctx, music, voice)
	if err != nil {
		return 0, err
	}
	targetMs := int(int64(target) * 1000 / audio.MixRate)
	log.Printf("[mix] M4 aligned to %d samples (%dms, mode %s)", target, targetMs, m.cfg.Mix.RetimeMode)

	// M5: sample-count lock.
	music.LockSamples(target)
	voice.LockSamples(target)

	// M6: sidechain-style ducking.
	ducked := ApplyDuck(music, voice, DefaultDuckParams())
	ducked.LockSamples(target)

	// M7: overlay and peak guard.
	ducked.Overlay(voice)
	if peak := PeakGuard(ducked, m.cfg.Mix.PeakCeilingDB); peak > m.cfg.Mix.PeakCeilingDB {
		log.Printf("[mix] M7 peak %.2f dBFS pulled to ceiling %.1f", peak, m.cfg.Mix.PeakCeilingDB)
	}
	ducked.LockSamples(target)

	// M8: tail fade and mastering.
	ducked.FadeOut(min(900, max(350, targetMs/18)))
	ducked, err = m.master(ctx, ducked)
	if err != nil {
		return 0, types.E(types.ErrEncoding, "mix", err)
	}
	ducked.LockSamples(target)

	// M9: encode with an explicit duration cap.
	capSeconds := float64(target) / float64(audio.MixRate)
	if err := m.engine.EncodeMP3(ctx, ducked, outPath, m.cfg.Mix.Bitrate, capSeconds); err != nil {
		return 0, types.E(types.ErrEncoding, "mix", err)
	}

	// M10: verify the encoded file round-trips to the target length.
	if err := m.verify(ctx, outPath, target); err != nil {
		return 0, err
	}
	log.Printf("[mix] ✅ Composed %s (%dms)", outPath, targetMs)
	return targetMs, nil
}

// normalizeTo applies a fixed gain so integrated RMS matches targetDB.
func normalizeTo(buf *audio.Buffer, targetDB float64) {
	cur := buf.RMSDB(0, len(buf.Samples))
	if cur <= -120 {
		return
	}
	buf.Gain(targetDB - cur)
}

// cosmetics shapes the stems when the engine ships the needed filters:
// low shelving cuts plus gentle compression on music, a high-pass and two
// bells on voice.
func (m *Mixer) cosmetics(ctx context.Context, music, voice *audio.Buffer) (*audio.Buffer, *audio.Buffer) {
	if m.engine.HasFilter("equalizer") {
		chain := "equalizer=f=50:t=q:w=1:g=-3,equalizer=f=80:t=q:w=1:g=-2"
		if m.engine.HasFilter("acompressor") {
			chain += ",acompressor=threshold=-20dB:ratio=3:attack=18:release=280:makeup=2.5"
		} else if m.engine.HasFilter("dynaudnorm") {
			chain += ",dynaudnorm"
		}
		if out, err := m.engine.Filter(ctx, music, chain); err == nil {
			music = out
		} else {
			log.Printf("[mix] ⚠️ M2 music shaping skipped: %v", err)
		}
	}
	if m.engine.HasFilter("highpass") {
		chain := "highpass=f=70"
		if m.engine.HasFilter("equalizer") {
			chain += ",equalizer=f=150:t=q:w=1:g=2,equalizer=f=3800:t=q:w=1:g=-1.5"
		}
		if out, err := m.engine.Filter(ctx, voice, chain); err == nil {
			voice = out
		} else {
			log.Printf("[mix] ⚠️ M2 voice shaping skipped: %v", err)
		}
	}
	return music, voice
}

// Reconcile resolves a voice that runs longer than the music. Small overage
// trims the voice with a fade-out; large overage extends the music by
// looping it with crossfades until it covers the voice.
func Reconcile(music, voice *audio.Buffer, tolMs int) (*audio.Buffer, *audio.Buffer) {
	v, mu := voice.DurationMs(), music.DurationMs()
	if v <= mu || mu == 0 {
		return music, voice
	}
	if v-mu <= tolMs {
		voice.LockSamples(music.SamplesPerChannel())
		voice.FadeOut(min(500, mu/10))
		return music, voice
	}
	fade := min(1000, mu/10)
	extended := music.Clone()
	for extended.DurationMs() < v {
		extended.AppendCrossfade(music, fade)
	}
	extended.LockSamples(voice.SamplesPerChannel())
	return extended, voice
}

// align fixes the target sample count per the configured mode and retimes
// (or trims/pads) the other stem onto it.
func (m *Mixer) align(ctx context.Context, music, voice *audio.Buffer) (int, *audio.Buffer, *audio.Buffer, error) {
	var target int
	var err error
	switch m.cfg.Mix.RetimeMode {
	case "retime_music_to_voice":
		target = voice.SamplesPerChannel()
		music, err = m.retime(ctx, music, target)
	case "no_retime_trim_pad":
		target = voice.SamplesPerChannel()
		music.LockSamples(target)
	default: // retime_voice_to_music
		target = music.SamplesPerChannel()
		voice, err = m.retime(ctx, voice, target)
	}
	if err != nil {
		return 0, nil, nil, types.E(types.ErrAlignment, "mix", err)
	}
	return target, music, voice, nil
}

// retime converts buf to exactly target samples per channel: first clamp the
// discrepancy to +/-15% by trimming or silence-padding, then run the
// residual through the engine's chained tempo filter.
func (m *Mixer) retime(ctx context.Context, buf *audio.Buffer, target int) (*audio.Buffer, error) {
	cur := buf.SamplesPerChannel()
	if cur == 0 || target == 0 {
		buf.LockSamples(target)
		return buf, nil
	}
	if hi := target * 115 / 100; cur > hi {
		buf.LockSamples(hi)
		cur = hi
	}
	if lo := target * 85 / 100; cur < lo {
		buf.LockSamples(lo)
		cur = lo
	}
	factor := float64(cur) / float64(target)
	if math.Abs(factor-1) < 0.001 {
		return buf, nil
	}
	return m.engine.Atempo(ctx, buf, factor)
}

// PeakGuard applies a single corrective gain when the peak exceeds the
// ceiling. Returns the pre-guard peak in dBFS.
func PeakGuard(buf *audio.Buffer, ceilingDB float64) float64 {
	peak := buf.PeakDB()
	if peak > ceilingDB {
		buf.Gain(ceilingDB - peak)
	}
	return peak
}

// master runs loudness normalization when available, otherwise dynamic
// normalization with a small trim.
func (m *Mixer) master(ctx context.Context, buf *audio.Buffer) (*audio.Buffer, error) {
	filter := "dynaudnorm,volume=-0.6dB"
	if m.engine.HasFilter("loudnorm") {
		filter = "loudnorm=I=-16:TP=-1:LRA=11:linear=true"
	}
	return m.engine.Filter(ctx, buf, filter)
}

// Tolerance is the acceptable verification slack in samples per channel:
// whichever is larger of 64 samples or 3 ms at the stream rate.
func Tolerance(sampleRate int) int {
	return max(64, 3*sampleRate/1000)
}

func (m *Mixer) verify(ctx context.Context, outPath string, target int) error {
	check, err := m.engine.DecodeFile(ctx, outPath, audio.MixRate, audio.MixChannels)
	if err != nil {
		return types.E(types.ErrAlignment, "mix", fmt.Errorf("verify decode: %w", err))
	}
	got := check.SamplesPerChannel()
	if diff := abs(got - target); diff > Tolerance(audio.MixRate) {
		targetMs := int(int64(target) * 1000 / audio.MixRate)
		if msDiff := abs(check.DurationMs() - targetMs); msDiff > 3 {
			return types.Ef(types.ErrAlignment, "mix",
				"verify: got %d samples, want %d (off by %d samples / %d ms)", got, target, diff, msDiff)
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
