package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"journey-pipeline/types"
)

type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	TTS    TTSConfig    `yaml:"tts"`
	Mix    MixConfig    `yaml:"mix"`
	Music  MusicConfig  `yaml:"music"`
	Voices VoicesConfig `yaml:"voices"`
	Paths  PathsConfig  `yaml:"paths"`
}

type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	WordsPerMin int     `yaml:"words_per_min"`
	APIKey      string  `yaml:"-"` // OPENAI_API_KEY
}

type TTSConfig struct {
	ModelID     string  `yaml:"model_id"`
	ChunkCap    int     `yaml:"chunk_cap"`     // max chars per TTS request
	Retries     int     `yaml:"retries"`       // attempts per chunk
	BackoffBase float64 `yaml:"backoff_base"`  // base^attempt seconds
	ChunkGapMs  int     `yaml:"chunk_gap_ms"`  // silence between chunks in a block
	BlockGapMs  int     `yaml:"block_gap_ms"`  // silence realizing [pause]
	TimeoutSec  int     `yaml:"timeout_sec"`   // per-call timeout
	APIKey      string  `yaml:"-"`             // ELEVENLABS_API_KEY
}

type MixConfig struct {
	VoiceTargetDB float64 `yaml:"voice_target_db"`
	MusicTargetDB float64 `yaml:"music_target_db"`
	PeakCeilingDB float64 `yaml:"peak_ceiling_db"`
	OverageTolMs  int     `yaml:"overage_tolerance_ms"` // voice-longer-than-music tolerance
	RetimeMode    string  `yaml:"retime_mode"`          // retime_voice_to_music | retime_music_to_voice | no_retime_trim_pad
	Bitrate       string  `yaml:"bitrate"`
}

type MusicConfig struct {
	WindowMs     int              `yaml:"window_ms"`     // analysis window, >= 50
	DayOverrides map[int][]string `yaml:"day_overrides"` // day -> track basenames (no extension)
}

type VoicesConfig struct {
	Pools  map[string][]string `yaml:"pools"`  // folder tag -> ordered voice ids
	Banned []string            `yaml:"banned"` // opaque exclusion list
}

type PathsConfig struct {
	OutDir        string `yaml:"out_dir"`
	ChillRoot     string `yaml:"chill_root"`
	PublicBaseURL string `yaml:"public_base_url"`
	FFmpegBin     string `yaml:"ffmpeg_bin"`
	FFprobeBin    string `yaml:"ffprobe_bin"`
}

// Load reads config.yaml, fills defaults, then overlays environment
// variables. Unknown env keys are ignored; missing required keys fail here.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, types.Ef(types.ErrConfig, "config", "parse %s: %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, types.E(types.ErrConfig, "config", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the embedded configuration. Voice ids are the production
// defaults; config.yaml overrides them.
func Defaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gpt-4o",
			Temperature: 0.8,
			WordsPerMin: 130,
		},
		TTS: TTSConfig{
			ModelID:     "eleven_multilingual_v2",
			ChunkCap:    3200,
			Retries:     3,
			BackoffBase: 1.5,
			ChunkGapMs:  350,
			BlockGapMs:  900,
			TimeoutSec:  120,
		},
		Mix: MixConfig{
			VoiceTargetDB: -13,
			MusicTargetDB: -17.5,
			PeakCeilingDB: -1,
			OverageTolMs:  2000,
			RetimeMode:    "retime_voice_to_music",
			Bitrate:       "256k",
		},
		Music: MusicConfig{
			WindowMs: 200,
			DayOverrides: map[int][]string{
				1: {"first_light"},
				2: {"undertow"},
				3: {"slow_return"},
				4: {"wide_open"},
				5: {"afterglow"},
			},
		},
		Voices: VoicesConfig{
			Pools: map[string][]string{
				"inception":      {"EXAVITQu4vr4xnSDxMaL", "pNInz6obpgDQGcFmaJgB"},
				"interstellar":   {"21m00Tcm4TlvDq8ikWAM", "EXAVITQu4vr4xnSDxMaL"},
				"think too much": {"pNInz6obpgDQGcFmaJgB", "ThT5KcBeYPX3keUQqHPh"},
			},
			// One id is excluded everywhere. Kept opaque on purpose.
			Banned: []string{"VR6AewLTigWG4xSOukaG"},
		},
		Paths: PathsConfig{
			OutDir:        "output",
			PublicBaseURL: "http://localhost:8080/audio",
		},
	}
}

func (c *Config) applyEnv() {
	setIfEnv(&c.LLM.APIKey, "OPENAI_API_KEY")
	setIfEnv(&c.TTS.APIKey, "ELEVENLABS_API_KEY")
	setIfEnv(&c.Paths.FFmpegBin, "FFMPEG_BIN")
	setIfEnv(&c.Paths.FFprobeBin, "FFPROBE_BIN")
	setIfEnv(&c.Paths.OutDir, "OUT_DIR")
	setIfEnv(&c.Paths.PublicBaseURL, "PUBLIC_BASE_URL")
	setIfEnv(&c.Paths.ChillRoot, "CHILL_ROOT")
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the keys the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Paths.ChillRoot == "" {
		return types.Ef(types.ErrConfig, "config", "CHILL_ROOT not set")
	}
	if c.LLM.APIKey == "" {
		return types.Ef(types.ErrConfig, "config", "OPENAI_API_KEY not set")
	}
	if c.TTS.APIKey == "" {
		return types.Ef(types.ErrConfig, "config", "ELEVENLABS_API_KEY not set")
	}
	if c.Music.WindowMs < 50 {
		return types.Ef(types.ErrConfig, "config", "window_ms must be >= 50, got %d", c.Music.WindowMs)
	}
	switch c.Mix.RetimeMode {
	case "retime_voice_to_music", "retime_music_to_voice", "no_retime_trim_pad":
	default:
		return types.Ef(types.ErrConfig, "config", "unknown retime_mode %q", c.Mix.RetimeMode)
	}
	return nil
}

// VoicePool returns the eligible voices for a folder with the banned ids
// removed. Falls back to the union of all pools for unknown folders.
func (c *Config) VoicePool(folder string) []string {
	pool, ok := c.Voices.Pools[folder]
	if !ok {
		for _, p := range c.Voices.Pools {
			pool = append(pool, p...)
		}
	}
	banned := make(map[string]bool, len(c.Voices.Banned))
	for _, id := range c.Voices.Banned {
		banned[id] = true
	}
	out := make([]string, 0, len(pool))
	for _, id := range pool {
		if !banned[id] {
			out = append(out, id)
		}
	}
	return out
}
