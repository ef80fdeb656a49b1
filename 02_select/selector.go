package selector

import (
	"log"
	"math/rand"
	"path"
	"strings"

	index "journey-pipeline/01_index"
	"journey-pipeline/config"
	"journey-pipeline/types"
)

// Selector picks the music track and voice for a session. It never fails
// outright: folder rules fall back to the whole folder, then to the entire
// index. Only an empty index is an error.
type Selector struct {
	cfg *config.Config
	rng *rand.Rand
}

// New creates a Selector. The rand source is injected so tests can pin it.
func New(cfg *config.Config, rng *rand.Rand) *Selector {
	return &Selector{cfg: cfg, rng: rng}
}

// Run chooses (track, voice) from the intake, recent history, and index.
func (s *Selector) Run(intake *types.Intake, hist *types.History, idx *types.MusicIndex) (*types.Selection, error) {
	if len(idx.Tracks) == 0 {
		return nil, types.Ef(types.ErrSelection, "select", "music index is empty")
	}

	track, ok := s.overrideForDay(intake.Day, idx)
	if !ok {
		track = s.pickTrack(intake, hist, idx)
	}

	voice := s.pickVoice(track.Folder, hist)

	sel := &types.Selection{
		TrackID:  track.ID,
		Path:     index.AbsPath(idx, track),
		Folder:   track.Folder,
		FileName: path.Base(track.Path),
		VoiceID:  voice,
	}
	log.Printf("[select] Track %s (%s) voice %s", sel.FileName, sel.Folder, sel.VoiceID)
	return sel, nil
}

// overrideForDay applies the hard per-day table. The override wins only when
// the named file is actually present in the index.
func (s *Selector) overrideForDay(day int, idx *types.MusicIndex) (types.TrackEntry, bool) {
	names := s.cfg.Music.DayOverrides[day]
	for _, name := range names {
		for _, t := range idx.Tracks {
			base := strings.TrimSuffix(path.Base(t.Path), path.Ext(t.Path))
			if strings.EqualFold(base, name) {
				return t, true
			}
		}
	}
	return types.TrackEntry{}, false
}

func (s *Selector) pickTrack(intake *types.Intake, hist *types.History, idx *types.MusicIndex) types.TrackEntry {
	folder := FolderFor(intake.Schema, intake.Mood)
	recent := make(map[string]bool, len(hist.RecentTrackIDs))
	for _, id := range hist.RecentTrackIDs {
		recent[id] = true
	}

	var fresh, inFolder []types.TrackEntry
	for _, t := range idx.Tracks {
		if t.Folder != folder {
			continue
		}
		inFolder = append(inFolder, t)
		if !recent[t.ID] {
			fresh = append(fresh, t)
		}
	}

	pool := fresh
	if len(pool) == 0 {
		pool = inFolder
	}
	if len(pool) == 0 {
		pool = idx.Tracks
	}
	return pool[s.rng.Intn(len(pool))]
}

// FolderFor maps intake signals to a folder tag. Schema takes precedence
// over mood. Pure function so the choice is testable apart from the
// randomized within-folder pick.
func FolderFor(schema, mood string) string {
	schema = strings.ToLower(schema)
	mood = strings.ToLower(mood)
	switch schema {
	case "defectiveness", "shame", "abandonment", "failure":
		return "interstellar"
	case "unseen", "unlovable", "emotional deprivation":
		return "inception"
	}
	switch {
	case containsAny(mood, []string{"anxious", "racing", "overwhelm", "spiral"}):
		return "think too much"
	case containsAny(mood, []string{"stuck", "numb", "empty", "hopeless"}):
		return "interstellar"
	}
	return "inception"
}

// pickVoice draws from the folder's eligible pool. The global exclusion list
// is applied inside VoicePool; the last-used voice is skipped when the pool
// has at least two members, so no back-to-back repeats.
func (s *Selector) pickVoice(folder string, hist *types.History) string {
	pool := s.cfg.VoicePool(folder)
	if len(pool) == 0 {
		return ""
	}
	if hist.LastVoiceID != "" && len(pool) >= 2 {
		trimmed := make([]string, 0, len(pool))
		for _, id := range pool {
			if id != hist.LastVoiceID {
				trimmed = append(trimmed, id)
			}
		}
		if len(trimmed) > 0 {
			pool = trimmed
		}
	}
	return pool[s.rng.Intn(len(pool))]
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
