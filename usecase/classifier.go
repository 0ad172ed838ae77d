package usecase

import (
	"strings"

	"github.com/satriahrh/moodcast/domain/entities"
)

// MoodClassifier maps transcript text to a mood label with a fixed
// keyword-priority policy:
//
//   - rules are checked in their configured order and the first rule with a
//     keyword occurring anywhere in the text wins, so a transcript matching
//     both "excited" and "sad" keywords is "excited" when excited is listed
//     first;
//   - matching is a case-insensitive substring test ("no" matches "nothing");
//   - empty text or no match yields the table's default label.
//
// The classifier holds no mutable state and is safe for concurrent use.
type MoodClassifier struct {
	table *entities.MoodTable
	rules []entities.MoodRule
}

// NewMoodClassifier creates a classifier over an immutable table
func NewMoodClassifier(table *entities.MoodTable) *MoodClassifier {
	return &MoodClassifier{
		table: table,
		rules: table.Rules(),
	}
}

// Classify returns the mood for text
func (c *MoodClassifier) Classify(text string) entities.MoodLabel {
	label, _ := c.Match(text)
	return label
}

// Match returns the mood for text and the keyword that selected it, or ""
// when the default label was used
func (c *MoodClassifier) Match(text string) (entities.MoodLabel, string) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return c.table.Default(), ""
	}

	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Label, kw
			}
		}
	}

	return c.table.Default(), ""
}
