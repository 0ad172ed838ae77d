package entities

import (
	"strings"
	"time"
)

// MoodLabel identifies one mood of the configured closed set
type MoodLabel string

// String returns the label as plain text
func (l MoodLabel) String() string {
	return string(l)
}

// Upper returns the label formatted for on-screen display
func (l MoodLabel) Upper() string {
	return strings.ToUpper(string(l))
}

// MoodProfile is the style configuration applied when a mood becomes current.
// Profiles are loaded once at startup and never mutated afterwards.
type MoodProfile struct {
	Prompt            string `json:"prompt" yaml:"prompt" bson:"prompt"`
	NegativePrompt    string `json:"negative_prompt" yaml:"negative_prompt" bson:"negative_prompt"`
	NumInferenceSteps int    `json:"num_inference_steps" yaml:"num_inference_steps" bson:"num_inference_steps"`
	Seed              *int64 `json:"seed,omitempty" yaml:"seed,omitempty" bson:"seed,omitempty"`
}

// MoodRule pairs a label with the keywords that select it
type MoodRule struct {
	Label    MoodLabel
	Keywords []string
}

// MoodTable is the immutable classification and style table.
// Rules are kept in priority order: when a transcript matches keywords of
// several rules, the rule listed first wins.
type MoodTable struct {
	rules    []MoodRule
	profiles map[MoodLabel]MoodProfile
	fallback MoodLabel
}

// NewMoodTable builds a table from rules in priority order, the profile map
// and the default label. Keywords are lower-cased; inputs are copied.
func NewMoodTable(rules []MoodRule, profiles map[MoodLabel]MoodProfile, fallback MoodLabel) *MoodTable {
	t := &MoodTable{
		rules:    make([]MoodRule, 0, len(rules)),
		profiles: make(map[MoodLabel]MoodProfile, len(profiles)),
		fallback: fallback,
	}
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kw = append(kw, k)
			}
		}
		t.rules = append(t.rules, MoodRule{Label: r.Label, Keywords: kw})
	}
	for label, p := range profiles {
		t.profiles[label] = p
	}
	return t
}

// Rules returns a copy of the rules in priority order
func (t *MoodTable) Rules() []MoodRule {
	out := make([]MoodRule, len(t.rules))
	for i, r := range t.rules {
		out[i] = MoodRule{Label: r.Label, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Default returns the label used when nothing matches
func (t *MoodTable) Default() MoodLabel {
	return t.fallback
}

// Profile returns the style profile for a label
func (t *MoodTable) Profile(label MoodLabel) (MoodProfile, bool) {
	p, ok := t.profiles[label]
	return p, ok
}

// Labels returns every label the table knows about: rule labels in priority
// order, then the default, then profile-only labels.
func (t *MoodTable) Labels() []MoodLabel {
	seen := make(map[MoodLabel]bool)
	var out []MoodLabel
	add := func(l MoodLabel) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, r := range t.rules {
		add(r.Label)
	}
	add(t.fallback)
	for l := range t.profiles {
		if !seen[l] {
			add(l)
		}
	}
	return out
}

// ProducibleLabels returns the labels the classifier can ever return
func (t *MoodTable) ProducibleLabels() []MoodLabel {
	seen := map[MoodLabel]bool{t.fallback: true}
	out := []MoodLabel{t.fallback}
	for _, r := range t.rules {
		if len(r.Keywords) > 0 && !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	return out
}

// KeywordCount returns the total number of keywords across all rules
func (t *MoodTable) KeywordCount() int {
	n := 0
	for _, r := range t.rules {
		n += len(r.Keywords)
	}
	return n
}

// MoodTransitionEvent is emitted only when the classified mood differs from
// the current one. From is empty for the priming event sent at startup.
type MoodTransitionEvent struct {
	ID             string    `json:"id" bson:"id"`
	From           MoodLabel `json:"from" bson:"from"`
	To             MoodLabel `json:"to" bson:"to"`
	TriggeringText string    `json:"triggering_text" bson:"triggering_text"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
}

// IsPriming reports whether the event is the startup application of the
// default mood rather than a real change
func (e MoodTransitionEvent) IsPriming() bool {
	return e.From == ""
}
