package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"journey-pipeline/types"
)

// A track stays off the selector's menu for this many sessions.
const keepRecent = 5

// Writer persists a finished session, its selection history, and the
// per-session staging lifecycle: intermediates live in a stage directory
// and reach the served output directory only through Promote.
type Writer interface {
	StageDir(id string) (string, error)
	Discard(dir string)
	Promote(dir, id string) error
	AudioPath(id string) string
	PublicURL(id string) string
	Save(s *types.Session) error
	LoadHistory() (*types.History, error)
	Record(h *types.History, trackID, voiceID string) error
}

// FileWriter stores sessions as JSON next to the audio in the output
// directory. History lives in a single history.json in the same place.
type FileWriter struct {
	OutDir        string
	PublicBaseURL string
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter creates the output directory if needed.
func NewFileWriter(outDir, publicBaseURL string) (*FileWriter, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileWriter{OutDir: outDir, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// NewID returns a fresh 12-char session id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// StageDir creates the scratch directory holding one session's
// intermediates. Nothing in it is served until Promote moves it out.
func (w *FileWriter) StageDir(id string) (string, error) {
	dir := filepath.Join(w.OutDir, "tmp_"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create stage dir: %w", err)
	}
	return dir, nil
}

// Discard drops a stage directory and everything in it. Safe to call after
// Promote; a failed session must leave nothing behind.
func (w *FileWriter) Discard(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("[session] ⚠️ Could not remove stage dir %s: %v", dir, err)
	}
}

// Promote moves a session's finished artifacts from its stage directory
// into the served output directory, then drops the stage directory.
func (w *FileWriter) Promote(dir, id string) error {
	for _, name := range []string{audioName(id), scriptName(id)} {
		src := filepath.Join(dir, name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.Rename(src, filepath.Join(w.OutDir, name)); err != nil {
			return fmt.Errorf("promote %s: %w", name, err)
		}
	}
	return os.RemoveAll(dir)
}

func audioName(id string) string  { return "journey_" + id + ".mp3" }
func scriptName(id string) string { return "journey_" + id + "_script.txt" }

// AudioPath is the served location of the final MP3 for a session id.
func (w *FileWriter) AudioPath(id string) string {
	return filepath.Join(w.OutDir, audioName(id))
}

// PublicURL is the listener-facing URL for a session id.
func (w *FileWriter) PublicURL(id string) string {
	return w.PublicBaseURL + "/" + audioName(id)
}

// Save writes the session record as journey_<id>.json.
func (w *FileWriter) Save(s *types.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	path := filepath.Join(w.OutDir, "journey_"+s.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	log.Printf("[session] ✅ Saved %s", path)
	return nil
}

func (w *FileWriter) historyPath() string {
	return filepath.Join(w.OutDir, "history.json")
}

// LoadHistory reads the selection history. A missing file is an empty
// history, not an error.
func (w *FileWriter) LoadHistory() (*types.History, error) {
	data, err := os.ReadFile(w.historyPath())
	if os.IsNotExist(err) {
		return &types.History{}, nil
	}
	if err != nil {
		return nil, err
	}
	var h types.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	return &h, nil
}

// Record prepends the track to the recent list, caps it, stores the voice,
// and persists the history.
func (w *FileWriter) Record(h *types.History, trackID, voiceID string) error {
	recent := []string{trackID}
	for _, id := range h.RecentTrackIDs {
		if id != trackID {
			recent = append(recent, id)
		}
	}
	if len(recent) > keepRecent {
		recent = recent[:keepRecent]
	}
	h.RecentTrackIDs = recent
	h.LastVoiceID = voiceID

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return os.WriteFile(w.historyPath(), data, 0o644)
}
