package mix

import (
	"math"

	"journey-pipeline/audio"
)

// DuckParams tunes the windowed sidechain gain rider.
type DuckParams struct {
	WindowMs    int     // gain update interval
	LookaheadMs int     // voice is inspected this far ahead of the music
	QuietDB     float64 // voice at or below this gets the full boost
	LoudDB      float64 // voice at or above this gets the full duck
	BoostDB     float64 // music gain when the voice is silent
	DuckDB      float64 // music gain when the voice is fully present
	AttackMs    int     // smoothing time constant going down
	ReleaseMs   int     // smoothing time constant going up
	HoldBelowDB float64 // windows below this count toward a silence run
	HoldRunMs   int     // duck is held until this much silence accrues
}

// DefaultDuckParams returns the tuning used by the mixer.
func DefaultDuckParams() DuckParams {
	return DuckParams{
		WindowMs:    60,
		LookaheadMs: 500,
		QuietDB:     -48,
		LoudDB:      -26,
		BoostDB:     3,
		DuckDB:      -1.5,
		AttackMs:    180,
		ReleaseMs:   650,
		HoldBelowDB: -45,
		HoldRunMs:   2600,
	}
}

// TargetGain maps a voice RMS level to the raw (unsmoothed) music gain in
// dB: full boost below the quiet threshold, full duck above the loud one,
// linear in between.
func (p DuckParams) TargetGain(voiceRMSDB float64) float64 {
	if voiceRMSDB <= p.QuietDB {
		return p.BoostDB
	}
	if voiceRMSDB >= p.LoudDB {
		return p.DuckDB
	}
	t := (voiceRMSDB - p.QuietDB) / (p.LoudDB - p.QuietDB)
	return p.BoostDB + t*(p.DuckDB-p.BoostDB)
}

// ApplyDuck rides the music gain against the voice envelope. The gain
// target per window comes from the look-ahead voice RMS, then moves through
// a one-pole smoother with separate attack and release time constants.
// After the voice has spoken, the duck holds until a long enough run of
// silence accrues, so short breath gaps do not pump the music.
func ApplyDuck(music, voice *audio.Buffer, p DuckParams) *audio.Buffer {
	out := music.Clone()
	if len(out.Samples) == 0 || p.WindowMs <= 0 {
		return out
	}

	step := out.SampleRate * p.WindowMs / 1000 * out.Channels
	if step <= 0 {
		step = out.Channels
	}
	look := out.SampleRate * p.LookaheadMs / 1000 * out.Channels

	gainDB := 0.0
	silenceMs := 0
	spoke := false
	held := p.DuckDB

	for pos := 0; pos < len(out.Samples); pos += step {
		end := min(pos+step, len(out.Samples))
		rms := voice.RMSDB(pos+look, pos+look+step)

		target := p.TargetGain(rms)
		if rms < p.HoldBelowDB {
			silenceMs += p.WindowMs
			if spoke && silenceMs < p.HoldRunMs {
				target = held
			}
		} else {
			silenceMs = 0
			spoke = true
			held = target
		}

		tc := p.ReleaseMs
		if target < gainDB {
			tc = p.AttackMs
		}
		alpha := 1.0
		if tc > p.WindowMs {
			alpha = float64(p.WindowMs) / float64(tc)
		}
		gainDB += alpha * (target - gainDB)

		scale := math.Pow(10, gainDB/20)
		for i := pos; i < end; i++ {
			v := float64(out.Samples[i]) * scale
			switch {
			case v > math.MaxInt16:
				out.Samples[i] = math.MaxInt16
			case v < math.MinInt16:
				out.Samples[i] = math.MinInt16
			default:
				out.Samples[i] = int16(v)
			}
		}
	}
	return out
}
