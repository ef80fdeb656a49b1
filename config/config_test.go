package config

import (
	"os"
	"path/filepath"
	"testing"

	"journey-pipeline/types"
)

func validDefaults() *Config {
	cfg := Defaults()
	cfg.LLM.APIKey = "sk-test"
	cfg.TTS.APIKey = "el-test"
	cfg.Paths.ChillRoot = "/music"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing chill root", func(c *Config) { c.Paths.ChillRoot = "" }, true},
		{"missing llm key", func(c *Config) { c.LLM.APIKey = "" }, true},
		{"missing tts key", func(c *Config) { c.TTS.APIKey = "" }, true},
		{"window too small", func(c *Config) { c.Music.WindowMs = 20 }, true},
		{"bad retime mode", func(c *Config) { c.Mix.RetimeMode = "stretch" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && types.KindOf(err) != types.ErrConfig {
				t.Fatalf("expected config error kind, got %v", err)
			}
		})
	}
}

func TestLoadOverlaysFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "llm:\n  model: gpt-4o-mini\nmix:\n  bitrate: 192k\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ELEVENLABS_API_KEY", "el-env")
	t.Setenv("CHILL_ROOT", "/env/music")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("yaml override lost: %s", cfg.LLM.Model)
	}
	if cfg.Mix.Bitrate != "192k" {
		t.Fatalf("yaml override lost: %s", cfg.Mix.Bitrate)
	}
	if cfg.TTS.ChunkCap != 3200 {
		t.Fatalf("default lost: %d", cfg.TTS.ChunkCap)
	}
	if cfg.Paths.ChillRoot != "/env/music" {
		t.Fatalf("env override lost: %s", cfg.Paths.ChillRoot)
	}
}

func TestLoadParseErrorTagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if types.KindOf(err) != types.ErrConfig {
		t.Fatalf("expected config error kind, got %v", err)
	}
}

func TestVoicePool(t *testing.T) {
	cfg := validDefaults()
	cfg.Voices.Pools = map[string][]string{
		"inception":    {"a", "b", "banned1"},
		"interstellar": {"c"},
	}
	cfg.Voices.Banned = []string{"banned1"}

	got := cfg.VoicePool("inception")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("banned id not removed: %v", got)
	}

	// Unknown folder falls back to the union of all pools, still filtered.
	union := cfg.VoicePool("no-such-folder")
	if len(union) != 3 {
		t.Fatalf("expected union of 3 eligible voices, got %v", union)
	}
	for _, id := range union {
		if id == "banned1" {
			t.Fatal("banned id leaked through the fallback union")
		}
	}
}
