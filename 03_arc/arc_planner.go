package arc

import (
	"strings"

	"journey-pipeline/types"
)

// Arcs is the closed set of emotional trajectories. The planner always
// returns one of these.
var Arcs = map[string]types.Arc{
	"rags_to_riches": {
		Key:     "rags_to_riches",
		Label:   "Rags to Riches",
		Summary: "A steady rise from depletion toward possibility.",
		Pacing:  "Start low and quiet. Build in small, believable steps. Let the final third open up and lift without rushing.",
	},
	"tragedy": {
		Key:     "tragedy",
		Label:   "Tragedy",
		Summary: "Honoring a loss fully before any turn toward meaning.",
		Pacing:  "Stay with the weight longer than feels comfortable. The turn, if it comes, is small and earned in the last stretch.",
	},
	"man_in_a_hole": {
		Key:     "man_in_a_hole",
		Label:   "Man in a Hole",
		Summary: "Down into the difficulty, then a climb back out.",
		Pacing:  "Descend early and name the hole plainly. Reach bottom near the middle, then climb gradually with growing steadiness.",
	},
	"icarus": {
		Key:     "icarus",
		Label:   "Icarus",
		Summary: "A rise on real strength that learns where its edges are.",
		Pacing:  "Climb with energy from the start. Near the peak, slow down and let the height be felt before a grounded landing.",
	},
	"cinderella": {
		Key:     "cinderella",
		Label:   "Cinderella",
		Summary: "Rise, setback, and a truer rise the second time.",
		Pacing:  "Lift early, then allow a dip that tests the gain. The second rise is warmer and more certain than the first.",
	},
	"oedipus": {
		Key:     "oedipus",
		Label:   "Oedipus",
		Summary: "A search that keeps uncovering what was always there.",
		Pacing:  "Move in waves of question and partial answer. Each wave sees a little more. End on clear, settled sight.",
	},
}

// Emotion keyword groups for the feedback-driven branch.
var (
	hopeWords     = []string{"hope", "relief", "calm", "peace", "light", "free", "open"}
	connectWords  = []string{"connect", "seen", "understood", "belong", "love", "close"}
	clarityWords  = []string{"clarity", "insight", "understand", "realize", "truth", "honest"}
	strengthWords = []string{"strong", "power", "capable", "brave", "confident"}

	lowMoods    = []string{"stuck", "hopeless", "empty", "worthless", "numb"}
	shameWords  = []string{"shame", "ashamed", "embarrass", "humiliat"}
	exciteWords = []string{"excite", "thrill", "eager"}
	fearWords   = []string{"fear", "afraid", "scared", "anxious"}
	lossWords   = []string{"loss", "lost", "grief", "griev", "breakup", "broke up", "died", "death"}
	freshWords  = []string{"restart", "second chance", "start over", "begin again", "fresh start"}
)

// Plan picks the arc for an intake. Deterministic: same inputs, same arc.
// Rules are applied in order and the first match wins; day-based defaults
// close the gap so every intake maps to some arc.
func Plan(intake *types.Intake) types.Arc {
	if fb := intake.Feedback; fb != nil {
		level := strings.ToLower(fb.ChillsLevel)
		if level == "high" || level == "medium" {
			if a, ok := arcFromEmotion(fb.Emotion); ok {
				return a
			}
		}
	}

	mood := strings.ToLower(intake.Mood)
	schema := strings.ToLower(intake.Schema)
	goal := strings.ToLower(intake.Goal + " " + intake.GoalWhy)
	hard := strings.ToLower(intake.HardThing)

	switch {
	case containsAny(mood, lowMoods):
		return Arcs["rags_to_riches"]
	case containsAny(mood, shameWords) || schema == "defectiveness" || schema == "shame":
		return Arcs["man_in_a_hole"]
	case containsAny(mood+" "+intake.Energy, exciteWords) && containsAny(mood+" "+intake.BodyFeel, fearWords):
		return Arcs["icarus"]
	case containsAny(goal+" "+hard, []string{"understand", "pattern", "why i"}):
		return Arcs["oedipus"]
	case containsAny(hard, lossWords):
		return Arcs["tragedy"]
	case containsAny(goal, freshWords):
		return Arcs["cinderella"]
	}

	switch intake.Day {
	case 1:
		return Arcs["rags_to_riches"]
	default:
		return Arcs["man_in_a_hole"]
	}
}

func arcFromEmotion(emotion string) (types.Arc, bool) {
	e := strings.ToLower(emotion)
	switch {
	case containsAny(e, hopeWords):
		return Arcs["rags_to_riches"], true
	case containsAny(e, connectWords):
		return Arcs["cinderella"], true
	case containsAny(e, clarityWords):
		return Arcs["oedipus"], true
	case containsAny(e, strengthWords):
		return Arcs["icarus"], true
	}
	return types.Arc{}, false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
