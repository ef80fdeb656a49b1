package prompt

import (
	"strings"
	"testing"

	arc "journey-pipeline/03_arc"
	"journey-pipeline/config"
	"journey-pipeline/types"
)

func TestWordTarget(t *testing.T) {
	lo, hi := WordTarget(300000, 130) // 5 minutes at 130 wpm = 650 words
	if lo != 585 || hi != 715 {
		t.Fatalf("WordTarget = %d-%d, want 585-715", lo, hi)
	}

	lo, hi = WordTarget(0, 130)
	if lo != 0 || hi != 0 {
		t.Fatalf("zero duration must yield a zero range, got %d-%d", lo, hi)
	}
}

func TestRunBrief(t *testing.T) {
	cfg := config.Defaults()
	b := New(cfg)
	in := &types.Intake{
		Day:      2,
		Mood:     "heavy",
		Goal:     "sleep earlier",
		GoalWhy:  "mornings are brutal",
		Setting:  "small apartment",
		Feedback: &types.Feedback{Emotion: "relief", Insight: "rest is allowed"},
	}
	an := &types.Analysis{DurationMs: 300000, DropMs: 150000, HasDrop: true, WindowMs: 200}

	brief := b.Run(in, arc.Arcs["man_in_a_hole"], an)

	for _, want := range []string{
		"LENGTH: 585-715 words.",
		"Man in a Hole",
		"DAY 2 THEME",
		"- Mood: heavy",
		"small apartment",
		"roughly 50% of the way through",
		"mid-session swell",
		"LAST SESSION:",
		"[pause]",
	} {
		if !strings.Contains(brief, want) {
			t.Errorf("brief missing %q", want)
		}
	}
}

func TestRunBriefDegradesWithoutOptionals(t *testing.T) {
	cfg := config.Defaults()
	in := &types.Intake{Day: 1, Mood: "fine", Goal: "breathe", GoalWhy: "because"}
	an := &types.Analysis{DurationMs: 180000}

	brief := New(cfg).Run(in, arc.Arcs["rags_to_riches"], an)
	if strings.Contains(brief, "PLACE:") {
		t.Error("no locale inputs must mean no PLACE section")
	}
	if strings.Contains(brief, "LAST SESSION:") {
		t.Error("no feedback must mean no LAST SESSION section")
	}
	if !strings.Contains(brief, "even energy") {
		t.Error("no drop must produce the even-energy hint")
	}
}

func TestLocaleSentence(t *testing.T) {
	if got := localeSentence("", ""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := localeSentence("10115", ""); !strings.Contains(got, "10115") {
		t.Fatalf("postal-only sentence wrong: %q", got)
	}
	if got := localeSentence("", "forest cabin"); !strings.Contains(got, "forest cabin") {
		t.Fatalf("setting-only sentence wrong: %q", got)
	}
}

func TestDayThemeFallback(t *testing.T) {
	if dayTheme(30) != dayTheme(7) {
		t.Fatal("days past the table must reuse the closing theme")
	}
}
