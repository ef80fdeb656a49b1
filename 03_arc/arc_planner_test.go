package arc

import (
	"testing"

	"journey-pipeline/types"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name   string
		intake types.Intake
		want   string
	}{
		{
			"low mood rises",
			types.Intake{Day: 3, Mood: "stuck and empty"},
			"rags_to_riches",
		},
		{
			"shame schema goes into the hole",
			types.Intake{Day: 2, Mood: "fine", Schema: "defectiveness"},
			"man_in_a_hole",
		},
		{
			"excitement with fear is icarus",
			types.Intake{Day: 4, Mood: "excited", BodyFeel: "scared in my chest"},
			"icarus",
		},
		{
			"pattern seeking is oedipus",
			types.Intake{Day: 4, Mood: "curious", Goal: "understand my pattern"},
			"oedipus",
		},
		{
			"loss is tragedy",
			types.Intake{Day: 5, Mood: "quiet", HardThing: "grief after the breakup"},
			"tragedy",
		},
		{
			"fresh start is cinderella",
			types.Intake{Day: 6, Mood: "tender", Goal: "a fresh start at work"},
			"cinderella",
		},
		{
			"day one default",
			types.Intake{Day: 1, Mood: "fine"},
			"rags_to_riches",
		},
		{
			"later day default",
			types.Intake{Day: 4, Mood: "fine"},
			"man_in_a_hole",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(&tt.intake)
			if got.Key != tt.want {
				t.Fatalf("Plan() = %s, want %s", got.Key, tt.want)
			}
		})
	}
}

func TestPlanFeedbackBranch(t *testing.T) {
	// Strong chills plus a recognized emotion override the intake rules.
	in := &types.Intake{
		Day: 3, Mood: "stuck",
		Feedback: &types.Feedback{ChillsLevel: "high", Emotion: "a wave of hope"},
	}
	if got := Plan(in); got.Key != "rags_to_riches" {
		t.Fatalf("feedback branch ignored: %s", got.Key)
	}

	// Weak chills fall back to the intake rules.
	in.Feedback.ChillsLevel = "subtle"
	in.Mood = "ashamed"
	if got := Plan(in); got.Key != "man_in_a_hole" {
		t.Fatalf("weak chills must not trigger the feedback branch: %s", got.Key)
	}

	// Unrecognized emotion falls through even with high chills.
	in.Feedback = &types.Feedback{ChillsLevel: "high", Emotion: "beige"}
	if got := Plan(in); got.Key != "man_in_a_hole" {
		t.Fatalf("unmapped emotion must fall through: %s", got.Key)
	}
}

func TestPlanTotal(t *testing.T) {
	moods := []string{"", "stuck", "ashamed", "excited", "fine", "???", "rage"}
	for day := 0; day <= 8; day++ {
		for _, mood := range moods {
			got := Plan(&types.Intake{Day: day, Mood: mood})
			if got.Key == "" || got.Pacing == "" {
				t.Fatalf("day %d mood %q produced an empty arc", day, mood)
			}
			if _, ok := Arcs[got.Key]; !ok {
				t.Fatalf("arc %q is not in the closed set", got.Key)
			}
		}
	}
}
