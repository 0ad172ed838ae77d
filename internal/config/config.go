package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
)

const envPrefix = "MOODCAST_"

// STT backends
const (
	STTGoogle  = "google"
	STTGemini  = "gemini"
	STTWhisper = "whisper"
	STTMock    = "mock"
)

// Audio capture and chunking
type Audio struct {
	SampleRate     int
	ChunkDuration  time.Duration
	BlockDuration  time.Duration
	PullTimeout    time.Duration
	QueueSize      int
	OverflowPolicy entities.OverflowPolicy
	// Synthetic replaces the microphone with generated silence
	Synthetic bool
}

// Loop timing and behaviour
type Loop struct {
	Period            time.Duration
	TranscribeTimeout time.Duration
	RemoteTimeout     time.Duration
	PrimeEffects      bool
	SkipSilence       bool
}

// STT selects and configures the transcription backend
type STT struct {
	Backend      string
	Language     string
	WhisperURL   string
	GeminiAPIKey string
	GeminiModel  string
}

// Daydream configures the remote rendering service
type Daydream struct {
	APIKey     string
	APIURL     string
	PipelineID string
	// StreamID reuses an existing stream instead of creating one
	StreamID string
	Disabled bool
}

// Overlay configures the overlay files
type Overlay struct {
	TextFile  string
	ImageFile string
	ImageDir  string
}

// Music configures background playback
type Music struct {
	Dir      string
	Player   string
	Disabled bool
}

// Storage configures where the mood timeline goes
type Storage struct {
	MongoURI      string
	MongoDatabase string
	// TimelineFile receives a JSON dump of the in-memory timeline on exit
	TimelineFile string
}

// Config holds all runtime configuration, loaded from environment variables
type Config struct {
	Env       string
	Port      int
	JWTSecret string
	MoodsFile string

	Audio    Audio
	Loop     Loop
	STT      STT
	Daydream Daydream
	Overlay  Overlay
	Music    Music
	Storage  Storage

	Moods *entities.MoodTable
}

// Load reads configuration from the environment (and a .env file when
// present) with defaults, loads the mood table and validates the result
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &domain.ConfigError{Field: ".env", Err: err}
	}

	var env envParser
	blockDur := env.readDuration("BLOCK_SECONDS", 500*time.Millisecond)

	cfg := &Config{
		Env:       envStr("ENV", "production"),
		Port:      env.readInt("PORT", 8080),
		JWTSecret: envStr("JWT_SECRET", ""),
		MoodsFile: envStr("MOODS_FILE", ""),

		Audio: Audio{
			SampleRate:     env.readInt("SAMPLE_RATE", 16000),
			ChunkDuration:  env.readDuration("CHUNK_SECONDS", 5*time.Second),
			BlockDuration:  blockDur,
			PullTimeout:    env.readDuration("PULL_TIMEOUT", 2*blockDur),
			QueueSize:      env.readInt("QUEUE_SIZE", 32),
			OverflowPolicy: entities.OverflowPolicy(envStr("OVERFLOW_POLICY", string(entities.OverflowDropOldest))),
			Synthetic:      env.readBool("SYNTHETIC_AUDIO", false),
		},
		Loop: Loop{
			Period:            env.readDuration("CYCLE_PERIOD", 5500*time.Millisecond),
			TranscribeTimeout: env.readDuration("TRANSCRIBE_TIMEOUT", 15*time.Second),
			RemoteTimeout:     env.readDuration("REMOTE_TIMEOUT", 10*time.Second),
			PrimeEffects:      env.readBool("PRIME_EFFECTS", true),
			SkipSilence:       env.readBool("SKIP_SILENCE", false),
		},
		STT: STT{
			Backend:      strings.ToLower(envStr("STT_BACKEND", STTGoogle)),
			Language:     envStr("STT_LANGUAGE", "en-US"),
			WhisperURL:   envStr("WHISPER_URL", "http://localhost:8000"),
			GeminiAPIKey: envStr("GEMINI_API_KEY", os.Getenv("GEMINI_API_KEY")),
			GeminiModel:  envStr("GEMINI_MODEL", ""),
		},
		Daydream: Daydream{
			APIKey:     envStr("DAYDREAM_API_KEY", os.Getenv("DAYDREAM_API_KEY")),
			APIURL:     envStr("DAYDREAM_API_URL", ""),
			PipelineID: envStr("DAYDREAM_PIPELINE_ID", ""),
			StreamID:   envStr("DAYDREAM_STREAM_ID", ""),
			Disabled:   env.readBool("DAYDREAM_DISABLED", false),
		},
		Overlay: Overlay{
			TextFile:  envStr("OVERLAY_TEXT_FILE", "current_mood.txt"),
			ImageFile: envStr("OVERLAY_IMAGE_FILE", "current_mood.png"),
			ImageDir:  envStr("OVERLAY_IMAGE_DIR", "mood_images"),
		},
		Music: Music{
			Dir:      envStr("MUSIC_DIR", "incredibles_audio"),
			Player:   envStr("MUSIC_PLAYER", ""),
			Disabled: env.readBool("MUSIC_DISABLED", false),
		},
		Storage: Storage{
			MongoURI:      envStr("MONGODB_URI", os.Getenv("MONGODB_URI")),
			MongoDatabase: envStr("MONGODB_DATABASE", "moodcast"),
			TimelineFile:  envStr("TIMELINE_FILE", "mood_timeline.json"),
		},
	}

	if env.err != nil {
		return nil, env.err
	}

	moods, err := LoadMoodTable(cfg.MoodsFile)
	if err != nil {
		return nil, err
	}
	cfg.Moods = moods

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether development logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Validate rejects configurations the loop cannot run with
func (c *Config) Validate() error {
	a := c.Audio
	switch {
	case a.SampleRate <= 0:
		return &domain.ConfigError{Field: "SAMPLE_RATE", Err: errors.New("must be positive")}
	case a.BlockDuration <= 0:
		return &domain.ConfigError{Field: "BLOCK_SECONDS", Err: errors.New("must be positive")}
	case a.BlockDuration >= a.ChunkDuration:
		return &domain.ConfigError{Field: "BLOCK_SECONDS", Err: fmt.Errorf("block %s must be shorter than chunk %s", a.BlockDuration, a.ChunkDuration)}
	case a.PullTimeout <= 0:
		return &domain.ConfigError{Field: "PULL_TIMEOUT", Err: errors.New("must be positive")}
	case a.QueueSize <= 0:
		return &domain.ConfigError{Field: "QUEUE_SIZE", Err: errors.New("must be positive")}
	case !a.OverflowPolicy.Valid():
		return &domain.ConfigError{Field: "OVERFLOW_POLICY", Err: fmt.Errorf("unknown policy %q", a.OverflowPolicy)}
	}

	l := c.Loop
	switch {
	case l.Period <= 0:
		return &domain.ConfigError{Field: "CYCLE_PERIOD", Err: errors.New("must be positive")}
	case l.TranscribeTimeout <= 0:
		return &domain.ConfigError{Field: "TRANSCRIBE_TIMEOUT", Err: errors.New("must be positive")}
	case l.RemoteTimeout <= 0:
		return &domain.ConfigError{Field: "REMOTE_TIMEOUT", Err: errors.New("must be positive")}
	}

	switch c.STT.Backend {
	case STTGoogle, STTMock:
	case STTGemini:
		if c.STT.GeminiAPIKey == "" {
			return &domain.ConfigError{Field: "GEMINI_API_KEY", Err: errors.New("required for the gemini backend")}
		}
	case STTWhisper:
		if c.STT.WhisperURL == "" {
			return &domain.ConfigError{Field: "WHISPER_URL", Err: errors.New("required for the whisper backend")}
		}
	default:
		return &domain.ConfigError{Field: "STT_BACKEND", Err: fmt.Errorf("unknown backend %q", c.STT.Backend)}
	}

	if !c.Daydream.Disabled && c.Daydream.APIKey == "" {
		return &domain.ConfigError{Field: "DAYDREAM_API_KEY", Err: errors.New("required unless DAYDREAM_DISABLED is set")}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return &domain.ConfigError{Field: "PORT", Err: fmt.Errorf("invalid port %d", c.Port)}
	}

	if c.Moods == nil {
		return &domain.ConfigError{Field: "moods", Err: domain.ErrEmptyKeywordTable}
	}
	return ValidateMoodTable(c.Moods)
}

// ValidateMoodTable checks every label the classifier can produce has a
// profile
func ValidateMoodTable(t *entities.MoodTable) error {
	if t.KeywordCount() == 0 {
		return &domain.ConfigError{Field: "moods", Err: domain.ErrEmptyKeywordTable}
	}
	for _, label := range t.ProducibleLabels() {
		if _, ok := t.Profile(label); !ok {
			return &domain.ConfigError{Field: "moods." + label.String(), Err: domain.ErrMissingProfile}
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

// envParser reads typed variables and keeps the first malformed one
type envParser struct {
	err error
}

func (p *envParser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = &domain.ConfigError{Field: key, Err: fmt.Errorf("invalid value %q: %w", value, err)}
	}
}

func (p *envParser) readInt(key string, fallback int) int {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *envParser) readBool(key string, fallback bool) bool {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

// readDuration accepts Go durations ("1.5s") or plain seconds ("1.5")
func (p *envParser) readDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, errors.New("want a duration such as 1.5s or a number of seconds"))
		return fallback
	}
	return time.Duration(f * float64(time.Second))
}
