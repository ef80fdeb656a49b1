package script

import (
	"regexp"
	"strings"
)

// The only affordance added when a script arrives with no complete sentence.
const affirmation = "You have already done the hardest part by showing up."

var (
	bracketRe   = regexp.MustCompile(`\[[^\[\]]*\]`)
	parenRe     = regexp.MustCompile(`\([^()]*\)`)
	musicLineRe = regexp.MustCompile(`(?i)instrumental music (begins|starts|fades)`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Sentinels keep the pause tokens alive while stage directions are stripped.
const (
	pauseSentinel  = "\x00p\x00"
	breathSentinel = "\x00b\x00"
)

// Finalize cleans the raw LLM output: removes bracketed and parenthesized
// stage directions (preserving [pause] and [breath]), drops lines narrating
// the music bed, collapses whitespace and repeated pauses, and guarantees the script ends at a
// terminal punctuation mark.
func Finalize(raw string) string {
	s := strings.ReplaceAll(raw, "[pause]", pauseSentinel)
	s = strings.ReplaceAll(s, "[breath]", breathSentinel)

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if musicLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	s = strings.Join(kept, "\n")

	s = bracketRe.ReplaceAllString(s, " ")
	s = parenRe.ReplaceAllString(s, " ")

	s = strings.ReplaceAll(s, pauseSentinel, "[pause]")
	s = strings.ReplaceAll(s, breathSentinel, "[breath]")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	// A run of pauses reads the same as one; every surviving token gets its
	// own gap at synthesis.
	for {
		t := strings.ReplaceAll(s, "[pause] [pause]", "[pause]")
		if t == s {
			break
		}
		s = t
	}

	s = trimTrailingTokens(s)
	if s == "" {
		return affirmation
	}

	if last := lastTerminal(s); last >= 0 {
		end := last + 1
		if end < len(s) && (s[end] == '"' || s[end] == '\'') {
			end++
		}
		return strings.TrimSpace(s[:end])
	}
	return s + "."
}

// trimTrailingTokens drops pause/breath tokens and whitespace hanging off the
// end of the script; a pause with nothing after it carries no meaning.
func trimTrailingTokens(s string) string {
	for {
		t := strings.TrimSpace(s)
		t = strings.TrimSuffix(t, "[pause]")
		t = strings.TrimSuffix(t, "[breath]")
		if t == s {
			return t
		}
		s = t
	}
}

func lastTerminal(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
