package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	index "journey-pipeline/01_index"
	selector "journey-pipeline/02_select"
	arc "journey-pipeline/03_arc"
	analyze "journey-pipeline/04_analyze"
	prompt "journey-pipeline/05_prompt"
	script "journey-pipeline/06_script"
	tts "journey-pipeline/07_tts"
	mix "journey-pipeline/08_mix"
	session "journey-pipeline/09_session"
	"journey-pipeline/audio"
	"journey-pipeline/config"
	"journey-pipeline/types"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env (local dev only — production uses real env)
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <intake.json>", os.Args[0])
	}
	intake, err := loadIntake(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to load intake: %v", err)
	}

	fw, err := session.NewFileWriter(cfg.Paths.OutDir, cfg.Paths.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to prepare output dir: %v", err)
	}
	var writer session.Writer = fw

	if err := run(cfg, intake, writer); err != nil {
		log.Fatalf("❌ Pipeline failed: %v", err)
	}
}

// run executes one session. Intermediates live in a stage directory that is
// discarded on every exit path; artifacts reach the output dir only after
// the mix verifies.
func run(cfg *config.Config, intake *types.Intake, writer session.Writer) error {
	sessionID := session.NewID()
	log.Printf("🎧 Journey Pipeline starting — Session ID: %s (day %d)", sessionID, intake.Day)

	ctx := context.Background()
	engine := audio.NewEngine(cfg.Paths.FFmpegBin, cfg.Paths.FFprobeBin)

	runDir, err := writer.StageDir(sessionID)
	if err != nil {
		return fmt.Errorf("Stage 0 Workspace: %w", err)
	}
	defer writer.Discard(runDir)

	// ─────────────────────────────────────────────
	// STAGE 1: Music Index
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: Music Index ━━━")
	idx, err := index.LoadOrBuild(filepath.Join(cfg.Paths.OutDir, "music_index.json"), cfg.Paths.ChillRoot)
	if err != nil {
		return fmt.Errorf("Stage 1 Index: %w", err)
	}

	// ─────────────────────────────────────────────
	// STAGE 2: Selection
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Selection ━━━")
	hist, err := writer.LoadHistory()
	if err != nil {
		return fmt.Errorf("Stage 2 History: %w", err)
	}
	sel, err := selector.New(cfg, rand.New(rand.NewSource(time.Now().UnixNano()))).Run(intake, hist, idx)
	if err != nil {
		return fmt.Errorf("Stage 2 Selection: %w", err)
	}

	// ─────────────────────────────────────────────
	// STAGE 3: Arc Planning
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Arc Planning ━━━")
	plan := arc.Plan(intake)
	log.Printf("[arc] %s — %s", plan.Key, plan.Label)

	// ─────────────────────────────────────────────
	// STAGE 4: Music Analysis
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 4: Music Analysis ━━━")
	analysis, err := analyze.New(cfg, engine).Run(ctx, sel.Path)
	if err != nil {
		return fmt.Errorf("Stage 4 Analysis: %w", err)
	}

	// ─────────────────────────────────────────────
	// STAGE 5: Script
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 5: Script ━━━")
	brief := prompt.New(cfg).Run(intake, plan, analysis)
	raw, err := script.New(cfg).Run(ctx, brief)
	if err != nil {
		return fmt.Errorf("Stage 5 Script: %w", err)
	}
	text := script.Finalize(raw)
	saveText(filepath.Join(runDir, "journey_"+sessionID+"_script.txt"), text)

	// ─────────────────────────────────────────────
	// STAGE 6: Voice Synthesis
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 6: Voice Synthesis ━━━")
	voice, err := tts.New(cfg, engine).Run(ctx, text, sel.VoiceID)
	if err != nil {
		return fmt.Errorf("Stage 6 Synthesis: %w", err)
	}

	// ─────────────────────────────────────────────
	// STAGE 7: Mix
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 7: Mix ━━━")
	stagedAudio := filepath.Join(runDir, "journey_"+sessionID+".mp3")
	durationMs, err := mix.New(cfg, engine).Run(ctx, sel.Path, voice, stagedAudio)
	if err != nil {
		return fmt.Errorf("Stage 7 Mix: %w", err)
	}

	// ─────────────────────────────────────────────
	// STAGE 8: Session Record
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 8: Session Record ━━━")
	if err := writer.Promote(runDir, sessionID); err != nil {
		return fmt.Errorf("Stage 8 Promote: %w", err)
	}
	rec := &types.Session{
		ID:         sessionID,
		Day:        intake.Day,
		Arc:        plan.Key,
		TrackID:    sel.TrackID,
		VoiceID:    sel.VoiceID,
		Script:     text,
		AudioFile:  writer.AudioPath(sessionID),
		PublicURL:  writer.PublicURL(sessionID),
		DurationMs: durationMs,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := writer.Save(rec); err != nil {
		return fmt.Errorf("Stage 8 Session: %w", err)
	}
	if err := writer.Record(hist, sel.TrackID, sel.VoiceID); err != nil {
		log.Printf("⚠️  Could not update history: %v", err)
	}

	log.Printf("✅ Pipeline complete! Audio: %s (%s)", rec.AudioFile, rec.PublicURL)
	return nil
}

func loadIntake(path string) (*types.Intake, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var in types.Intake
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if in.Day < 1 {
		in.Day = 1
	}
	return &in, nil
}

func saveText(path, text string) {
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
