package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
)

//go:embed moods.yaml
var defaultMoods []byte

// MoodFile is the YAML layout of the mood table
type MoodFile struct {
	Default string      `yaml:"default"`
	Moods   []MoodEntry `yaml:"moods"`
}

// MoodEntry is one mood: its keywords and its style
type MoodEntry struct {
	Label    string               `yaml:"label"`
	Keywords []string             `yaml:"keywords"`
	Style    entities.MoodProfile `yaml:"style"`
}

// DefaultMoodTable returns the built-in table
func DefaultMoodTable() (*entities.MoodTable, error) {
	return ParseMoodTable(defaultMoods)
}

// LoadMoodTable reads the table from path, or the built-in table when path
// is empty
func LoadMoodTable(path string) (*entities.MoodTable, error) {
	if path == "" {
		return DefaultMoodTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Field: "moods file", Err: err}
	}
	return ParseMoodTable(data)
}

// ParseMoodTable decodes and validates a YAML mood table
func ParseMoodTable(data []byte) (*entities.MoodTable, error) {
	var file MoodFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &domain.ConfigError{Field: "moods", Err: fmt.Errorf("invalid YAML: %w", err)}
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}

	rules := make([]entities.MoodRule, 0, len(file.Moods))
	profiles := make(map[entities.MoodLabel]entities.MoodProfile, len(file.Moods))
	for _, m := range file.Moods {
		label := entities.MoodLabel(strings.TrimSpace(m.Label))
		rules = append(rules, entities.MoodRule{Label: label, Keywords: m.Keywords})
		profiles[label] = m.Style
	}
	return entities.NewMoodTable(rules, profiles, entities.MoodLabel(strings.TrimSpace(file.Default))), nil
}

// Validate checks the table is usable: a non-empty keyword set, a unique
// profile for every mood, and a default mood with a profile
func (f MoodFile) Validate() error {
	if strings.TrimSpace(f.Default) == "" {
		return &domain.ConfigError{Field: "moods.default", Err: errors.New("default mood is required")}
	}

	seen := make(map[string]bool)
	keywords := 0
	for i, m := range f.Moods {
		label := strings.TrimSpace(m.Label)
		if label == "" {
			return &domain.ConfigError{Field: fmt.Sprintf("moods[%d].label", i), Err: errors.New("label is required")}
		}
		if seen[label] {
			return &domain.ConfigError{Field: "moods." + label, Err: errors.New("duplicate mood")}
		}
		seen[label] = true

		for _, kw := range m.Keywords {
			if strings.TrimSpace(kw) != "" {
				keywords++
			}
		}
		if strings.TrimSpace(m.Style.Prompt) == "" {
			return &domain.ConfigError{Field: "moods." + label + ".style", Err: fmt.Errorf("%w: prompt is empty", domain.ErrMissingProfile)}
		}
		if m.Style.NumInferenceSteps <= 0 {
			return &domain.ConfigError{Field: "moods." + label + ".style.num_inference_steps", Err: errors.New("must be positive")}
		}
	}

	if keywords == 0 {
		return &domain.ConfigError{Field: "moods", Err: domain.ErrEmptyKeywordTable}
	}
	if !seen[strings.TrimSpace(f.Default)] {
		return &domain.ConfigError{Field: "moods.default", Err: fmt.Errorf("%w: %s", domain.ErrMissingProfile, f.Default)}
	}
	return nil
}
