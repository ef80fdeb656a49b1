package prompt

import (
	"fmt"
	"strings"

	"journey-pipeline/config"
	"journey-pipeline/types"
)

// Builder composes the single text brief handed to the script generator.
// Missing postal code, setting, or feedback degrade the brief, never fail it.
type Builder struct {
	cfg *config.Config
}

// New creates a prompt Builder.
func New(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// dayThemes keys a short theme paragraph to the journey day. Days past the
// table reuse the closing theme.
var dayThemes = map[int]string{
	1: "Arrival. The listener is at the very start, and the only task is to be here at all. Nothing needs fixing yet.",
	2: "Naming. Yesterday was a doorway; today the listener looks directly at what is hard and gives it an honest name.",
	3: "Pattern. The listener begins noticing the loop they have been living inside, with curiosity rather than blame.",
	4: "Choice. A small deliberate act against the old pattern. The theme is agency at the smallest workable scale.",
	5: "Momentum. Repetition is turning into evidence. The listener collects proof that change is already underway.",
	6: "Integration. The new way and the old way coexist; the listener practices holding both without going backward.",
	7: "Continuation. The journey does not end, it widens. Today folds everything so far into an ongoing practice.",
}

// Run builds the brief from the intake, chosen arc, and music analysis.
func (b *Builder) Run(intake *types.Intake, a types.Arc, an *types.Analysis) string {
	lo, hi := WordTarget(an.DurationMs, b.cfg.LLM.WordsPerMin)

	var sb strings.Builder
	sb.WriteString("Write a guided spoken-word journey session for one listener.\n\n")

	sb.WriteString(fmt.Sprintf("EMOTIONAL ARC: %s - %s\n", a.Label, a.Summary))
	sb.WriteString(fmt.Sprintf("PACING: %s\n\n", a.Pacing))

	sb.WriteString(fmt.Sprintf("DAY %d THEME: %s\n\n", intake.Day, dayTheme(intake.Day)))

	sb.WriteString("TODAY'S INTAKE:\n")
	sb.WriteString(fmt.Sprintf("- Mood: %s\n", intake.Mood))
	if intake.BodyFeel != "" {
		sb.WriteString(fmt.Sprintf("- Body sensation: %s\n", intake.BodyFeel))
	}
	if intake.Energy != "" {
		sb.WriteString(fmt.Sprintf("- Energy: %s\n", intake.Energy))
	}
	sb.WriteString(fmt.Sprintf("- Goal: %s (because: %s)\n", intake.Goal, intake.GoalWhy))
	if intake.LastWin != "" {
		sb.WriteString(fmt.Sprintf("- Recent win: %s\n", intake.LastWin))
	}
	if intake.HardThing != "" {
		sb.WriteString(fmt.Sprintf("- Hard thing: %s\n", intake.HardThing))
	}
	if intake.Schema != "" {
		sb.WriteString(fmt.Sprintf("- Self-schema: %s\n", intake.Schema))
	}
	sb.WriteString("\n")

	if loc := localeSentence(intake.PostalCode, intake.Setting); loc != "" {
		sb.WriteString("PLACE: " + loc + "\n\n")
	}

	sb.WriteString("MUSIC: " + timingHint(an) + "\n")
	if an.HasDrop && an.DurationMs > 0 {
		frac := float64(an.DropMs) / float64(an.DurationMs)
		sb.WriteString(fmt.Sprintf(
			"Place the climactic line just before the drop at roughly %.0f%% of the way through.\n", frac*100))
	}
	sb.WriteString("\n")

	if fb := intake.Feedback; fb != nil {
		sb.WriteString("LAST SESSION:\n")
		if fb.Emotion != "" {
			sb.WriteString(fmt.Sprintf("- They felt %q. Echo that feeling once, lightly.\n", fb.Emotion))
		}
		if fb.ChillsDetail != "" {
			sb.WriteString(fmt.Sprintf("- What gave them chills: %s\n", fb.ChillsDetail))
		}
		if fb.Insight != "" {
			sb.WriteString(fmt.Sprintf("- Their insight: %s\n", fb.Insight))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("LENGTH: %d-%d words.\n\n", lo, hi))

	sb.WriteString(`STYLE CONTRACT:
- Third-person narration about "the listener"; never use a name.
- Vary sentence openings; no sentence-level repetition.
- Include the literal token [pause] at natural rest points: at least 4, at most 8.
- No other stage directions, brackets, or sound cues of any kind.
- Land softly: the final lines settle rather than peak.
- You may close with a single second-person invitation in the last one or two sentences.`)

	return sb.String()
}

// WordTarget converts music duration to a word-count range at the configured
// speaking rate, +/-10%.
func WordTarget(durationMs, wordsPerMin int) (lo, hi int) {
	words := durationMs * wordsPerMin / 60000
	return words * 90 / 100, words * 110 / 100
}

func dayTheme(day int) string {
	if t, ok := dayThemes[day]; ok {
		return t
	}
	return dayThemes[7]
}

// localeSentence turns the optional postal code and setting into one grounding
// sentence. Either field alone still produces something usable.
func localeSentence(postal, setting string) string {
	switch {
	case postal != "" && setting != "":
		return fmt.Sprintf("The listener is in a %s near %s; let the surroundings color one or two images.", setting, postal)
	case setting != "":
		return fmt.Sprintf("The listener is in a %s; let that setting color one or two images.", setting)
	case postal != "":
		return fmt.Sprintf("The listener is near %s; a single local image is enough.", postal)
	}
	return ""
}

// timingHint tells the writer where the music carries its weight.
func timingHint(an *types.Analysis) string {
	if !an.HasDrop || an.DurationMs == 0 {
		return "The music holds an even energy; pace the narration evenly."
	}
	frac := float64(an.DropMs) / float64(an.DurationMs)
	switch {
	case frac < 0.33:
		return "The music builds early; open with presence and let the first third carry intensity."
	case frac < 0.66:
		return "The music builds toward the middle; shape the narration around a mid-session swell."
	default:
		return "The music swells late; keep the early narration low and let the final third rise."
	}
}
