package mix

import (
	"math"
	"testing"

	"journey-pipeline/audio"
)

// tone returns a constant-amplitude buffer, rate 1000 mono for small tests.
func tone(ms int, amp int16) *audio.Buffer {
	b := audio.Silence(ms, 1000, 1)
	for i := range b.Samples {
		b.Samples[i] = amp
	}
	return b
}

func TestReconcileVoiceShorterUntouched(t *testing.T) {
	music, voice := tone(5000, 1000), tone(3000, 2000)
	m, v := Reconcile(music, voice, 2000)
	if m.DurationMs() != 5000 || v.DurationMs() != 3000 {
		t.Fatalf("nothing to reconcile, got music %dms voice %dms", m.DurationMs(), v.DurationMs())
	}
}

func TestReconcileSmallOverageTrimsVoice(t *testing.T) {
	music, voice := tone(3000, 1000), tone(4000, 2000)
	m, v := Reconcile(music, voice, 2000)
	if v.SamplesPerChannel() != m.SamplesPerChannel() {
		t.Fatalf("voice must trim to music length: voice %d music %d",
			v.SamplesPerChannel(), m.SamplesPerChannel())
	}
	// The trim ends in a fade, not a hard cut.
	if last := v.Samples[len(v.Samples)-1]; last > 100 {
		t.Fatalf("expected faded tail, got %d", last)
	}
}

func TestReconcileLargeOverageExtendsMusic(t *testing.T) {
	music, voice := tone(2000, 1000), tone(9000, 2000)
	m, v := Reconcile(music, voice, 2000)
	if v.DurationMs() != 9000 {
		t.Fatalf("voice must stay intact, got %dms", v.DurationMs())
	}
	if m.SamplesPerChannel() != v.SamplesPerChannel() {
		t.Fatalf("extended music must match voice length: music %d voice %d",
			m.SamplesPerChannel(), v.SamplesPerChannel())
	}
}

func TestPeakGuard(t *testing.T) {
	b := tone(100, 32000) // about -0.2 dBFS
	pre := PeakGuard(b, -1)
	if pre < -0.5 {
		t.Fatalf("expected a hot pre-guard peak, got %f", pre)
	}
	if post := b.PeakDB(); post > -0.9 {
		t.Fatalf("peak not pulled to ceiling: %f", post)
	}

	quiet := tone(100, 1000)
	before := quiet.Samples[0]
	PeakGuard(quiet, -1)
	if quiet.Samples[0] != before {
		t.Fatal("guard must not touch audio under the ceiling")
	}
}

func TestTolerance(t *testing.T) {
	if got := Tolerance(44100); got != 132 {
		t.Fatalf("Tolerance(44100) = %d, want 132", got)
	}
	if got := Tolerance(8000); got != 64 {
		t.Fatalf("Tolerance(8000) = %d, want the 64-sample floor", got)
	}
}

func TestTargetGain(t *testing.T) {
	p := DefaultDuckParams()
	tests := []struct {
		rms  float64
		want float64
	}{
		{-120, 3},
		{-48, 3},
		{-26, -1.5},
		{-10, -1.5},
		{-37, 0.75}, // midpoint of the linear ramp
	}
	for _, tt := range tests {
		if got := p.TargetGain(tt.rms); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TargetGain(%f) = %f, want %f", tt.rms, got, tt.want)
		}
	}
}

func TestApplyDuckBoostsUnderSilence(t *testing.T) {
	music := tone(4000, 1000)
	voice := audio.Silence(4000, 1000, 1)
	out := ApplyDuck(music, voice, DefaultDuckParams())

	if music.Samples[0] != 1000 {
		t.Fatal("ducking must not mutate its input")
	}
	// With no voice the gain converges toward the +3dB boost.
	last := out.Samples[len(out.Samples)-1]
	if last <= 1100 {
		t.Fatalf("expected boosted tail, got %d", last)
	}
}

func TestApplyDuckDucksUnderVoice(t *testing.T) {
	music := tone(4000, 1000)
	voice := tone(4000, 20000) // well above the loud threshold
	out := ApplyDuck(music, voice, DefaultDuckParams())

	last := out.Samples[len(out.Samples)-1]
	if last >= 950 {
		t.Fatalf("expected ducked tail, got %d", last)
	}
}

func TestApplyDuckHoldsThroughShortGaps(t *testing.T) {
	p := DefaultDuckParams()
	music := tone(6000, 1000)

	// Voice speaks, goes quiet for 1s (shorter than the hold run), speaks again.
	voice := tone(2000, 20000)
	voice.Append(audio.Silence(1000, 1000, 1))
	voice.Append(tone(3000, 20000))

	out := ApplyDuck(music, voice, p)

	// Mid-gap the duck must still hold: sample at 2500ms stays attenuated.
	mid := out.Samples[2500]
	if mid >= 950 {
		t.Fatalf("duck released during a short gap: %d", mid)
	}
}
