package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
)

func TestDefaultMoodTable(t *testing.T) {
	table, err := DefaultMoodTable()
	if err != nil {
		t.Fatalf("built-in table invalid: %v", err)
	}

	if table.Default() != "neutral" {
		t.Errorf("Default = %s", table.Default())
	}

	var order []entities.MoodLabel
	for _, r := range table.Rules() {
		if len(r.Keywords) > 0 {
			order = append(order, r.Label)
		}
	}
	want := []entities.MoodLabel{"excited", "sad", "boring", "terrible"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("priority %d = %s, want %s", i, order[i], want[i])
		}
	}

	p, ok := table.Profile("boring")
	if !ok || p.NumInferenceSteps != 35 {
		t.Errorf("boring profile = %+v", p)
	}
}

func TestParseMoodTable_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "no keywords",
			yaml:    "default: calm\nmoods:\n  - label: calm\n    style: {prompt: p, num_inference_steps: 10}\n",
			wantErr: domain.ErrEmptyKeywordTable,
		},
		{
			name:    "default without profile",
			yaml:    "default: calm\nmoods:\n  - label: hype\n    keywords: [wow]\n    style: {prompt: p, num_inference_steps: 10}\n",
			wantErr: domain.ErrMissingProfile,
		},
		{
			name:    "mood without prompt",
			yaml:    "default: calm\nmoods:\n  - label: hype\n    keywords: [wow]\n  - label: calm\n    style: {prompt: p, num_inference_steps: 10}\n",
			wantErr: domain.ErrMissingProfile,
		},
		{
			name: "duplicate",
			yaml: "default: calm\nmoods:\n  - label: calm\n    keywords: [a]\n    style: {prompt: p, num_inference_steps: 1}\n  - label: calm\n    style: {prompt: p, num_inference_steps: 1}\n",
		},
		{
			name: "zero steps",
			yaml: "default: calm\nmoods:\n  - label: calm\n    keywords: [a]\n    style: {prompt: p}\n",
		},
		{
			name: "not yaml",
			yaml: "default: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMoodTable([]byte(tt.yaml))
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMoodTable_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moods.yaml")
	data := `default: calm
moods:
  - label: hype
    keywords: [Let's Go]
    style: {prompt: loud, num_inference_steps: 20, seed: 7}
  - label: calm
    style: {prompt: quiet, num_inference_steps: 20}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadMoodTable(path)
	if err != nil {
		t.Fatal(err)
	}
	rules := table.Rules()
	if rules[0].Keywords[0] != "let's go" {
		t.Errorf("keywords not normalised: %v", rules[0].Keywords)
	}
	p, _ := table.Profile("hype")
	if p.Seed == nil || *p.Seed != 7 {
		t.Errorf("seed = %v", p.Seed)
	}

	if _, err := LoadMoodTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MOODCAST_DAYDREAM_API_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Audio.SampleRate != 16000 || cfg.Audio.ChunkDuration != 5*time.Second || cfg.Audio.BlockDuration != 500*time.Millisecond {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.PullTimeout != time.Second {
		t.Errorf("PullTimeout = %s", cfg.Audio.PullTimeout)
	}
	if cfg.Loop.Period != 5500*time.Millisecond || !cfg.Loop.PrimeEffects || cfg.Loop.SkipSilence {
		t.Errorf("loop = %+v", cfg.Loop)
	}
	if cfg.STT.Backend != STTGoogle || cfg.Port != 8080 {
		t.Errorf("stt = %s port = %d", cfg.STT.Backend, cfg.Port)
	}
	if cfg.Moods == nil {
		t.Error("mood table not loaded")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MOODCAST_DAYDREAM_DISABLED", "true")
	t.Setenv("MOODCAST_CHUNK_SECONDS", "3")
	t.Setenv("MOODCAST_BLOCK_SECONDS", "250ms")
	t.Setenv("MOODCAST_CYCLE_PERIOD", "3.5")
	t.Setenv("MOODCAST_OVERFLOW_POLICY", "count-and-drop")
	t.Setenv("MOODCAST_STT_BACKEND", "MOCK")
	t.Setenv("MOODCAST_SKIP_SILENCE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.ChunkDuration != 3*time.Second || cfg.Audio.BlockDuration != 250*time.Millisecond {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.PullTimeout != 500*time.Millisecond {
		t.Errorf("PullTimeout = %s", cfg.Audio.PullTimeout)
	}
	if cfg.Loop.Period != 3500*time.Millisecond || !cfg.Loop.SkipSilence {
		t.Errorf("loop = %+v", cfg.Loop)
	}
	if cfg.Audio.OverflowPolicy != entities.OverflowCountAndDrop || cfg.STT.Backend != STTMock {
		t.Errorf("policy = %s backend = %s", cfg.Audio.OverflowPolicy, cfg.STT.Backend)
	}
}

func TestLoad_MalformedValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
		field string
	}{
		{"MOODCAST_QUEUE_SIZE", "sixteen", "QUEUE_SIZE"},
		{"MOODCAST_CYCLE_PERIOD", "5 seconds", "CYCLE_PERIOD"},
		{"MOODCAST_SKIP_SILENCE", "sometimes", "SKIP_SILENCE"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("MOODCAST_DAYDREAM_DISABLED", "true")
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			if cfg != nil {
				t.Errorf("cfg = %+v, want nil", cfg)
			}
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %s, want %s", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		table, _ := DefaultMoodTable()
		return &Config{
			Port: 8080,
			Audio: Audio{
				SampleRate: 16000, ChunkDuration: 5 * time.Second, BlockDuration: 500 * time.Millisecond,
				PullTimeout: time.Second, QueueSize: 32, OverflowPolicy: entities.OverflowDropOldest,
			},
			Loop:     Loop{Period: 5 * time.Second, TranscribeTimeout: time.Second, RemoteTimeout: time.Second},
			STT:      STT{Backend: STTMock},
			Daydream: Daydream{Disabled: true},
			Moods:    table,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"block not shorter than chunk", func(c *Config) { c.Audio.BlockDuration = 5 * time.Second }, "BLOCK_SECONDS"},
		{"zero block", func(c *Config) { c.Audio.BlockDuration = 0 }, "BLOCK_SECONDS"},
		{"zero queue", func(c *Config) { c.Audio.QueueSize = 0 }, "QUEUE_SIZE"},
		{"bad policy", func(c *Config) { c.Audio.OverflowPolicy = "block" }, "OVERFLOW_POLICY"},
		{"zero period", func(c *Config) { c.Loop.Period = 0 }, "CYCLE_PERIOD"},
		{"zero transcribe timeout", func(c *Config) { c.Loop.TranscribeTimeout = 0 }, "TRANSCRIBE_TIMEOUT"},
		{"unknown backend", func(c *Config) { c.STT.Backend = "vosk" }, "STT_BACKEND"},
		{"gemini without key", func(c *Config) { c.STT.Backend = STTGemini }, "GEMINI_API_KEY"},
		{"daydream without key", func(c *Config) { c.Daydream.Disabled = false }, "DAYDREAM_API_KEY"},
		{"no moods", func(c *Config) { c.Moods = nil }, "moods"},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %s, want %s", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestValidateMoodTable_MissingProfile(t *testing.T) {
	table := entities.NewMoodTable(
		[]entities.MoodRule{{Label: "hype", Keywords: []string{"wow"}}},
		map[entities.MoodLabel]entities.MoodProfile{"calm": {Prompt: "p", NumInferenceSteps: 1}},
		"calm",
	)
	if err := ValidateMoodTable(table); !errors.Is(err, domain.ErrMissingProfile) {
		t.Errorf("err = %v, want ErrMissingProfile", err)
	}
}
