package entities

import (
	"testing"
	"time"
)

func TestNewMoodTable_NormalisesAndCopies(t *testing.T) {
	rules := []MoodRule{
		{Label: "hype", Keywords: []string{"  WOW ", "", "Goal"}},
		{Label: "calm"},
	}
	profiles := map[MoodLabel]MoodProfile{
		"hype": {Prompt: "loud", NumInferenceSteps: 10},
		"calm": {Prompt: "quiet", NumInferenceSteps: 10},
	}
	table := NewMoodTable(rules, profiles, "calm")

	rules[0].Keywords[0] = "mutated"
	profiles["hype"] = MoodProfile{}

	got := table.Rules()
	if len(got[0].Keywords) != 2 || got[0].Keywords[0] != "wow" || got[0].Keywords[1] != "goal" {
		t.Errorf("keywords = %v", got[0].Keywords)
	}
	if p, _ := table.Profile("hype"); p.Prompt != "loud" {
		t.Errorf("profile was not copied: %+v", p)
	}

	got[0].Keywords[0] = "changed"
	if table.Rules()[0].Keywords[0] != "wow" {
		t.Error("Rules returned shared slice")
	}

	if table.KeywordCount() != 2 {
		t.Errorf("KeywordCount = %d", table.KeywordCount())
	}
}

func TestMoodTable_Labels(t *testing.T) {
	table := NewMoodTable(
		[]MoodRule{{Label: "hype", Keywords: []string{"wow"}}, {Label: "idle"}},
		map[MoodLabel]MoodProfile{"hype": {}, "calm": {}, "extra": {}},
		"calm",
	)

	produced := table.ProducibleLabels()
	if len(produced) != 2 || produced[0] != "calm" || produced[1] != "hype" {
		t.Errorf("ProducibleLabels = %v", produced)
	}

	labels := table.Labels()
	want := map[MoodLabel]bool{"hype": true, "idle": true, "calm": true, "extra": true}
	if len(labels) != len(want) {
		t.Fatalf("Labels = %v", labels)
	}
	for _, l := range labels {
		if !want[l] {
			t.Errorf("unexpected label %s", l)
		}
	}
}

func TestMoodLabel_Upper(t *testing.T) {
	if MoodLabel("excited").Upper() != "EXCITED" {
		t.Error("Upper did not upper-case")
	}
}

func TestNewAudioChunk(t *testing.T) {
	start := time.Now()
	chunk := NewAudioChunk([]AudioBlock{
		{CapturedAt: start, Samples: []int16{1, 2}},
		{CapturedAt: start.Add(time.Second), Samples: []int16{3}},
	}, 3)

	if chunk.Blocks != 2 || !chunk.StartedAt.Equal(start) {
		t.Errorf("chunk = %+v", chunk)
	}
	if len(chunk.Samples) != 3 || chunk.Samples[2] != 3 {
		t.Errorf("samples = %v", chunk.Samples)
	}
	if chunk.Duration() != time.Second {
		t.Errorf("Duration = %s", chunk.Duration())
	}

	empty := NewAudioChunk(nil, 16000)
	if !empty.IsEmpty() || empty.Duration() != 0 {
		t.Errorf("empty chunk = %+v", empty)
	}
}

func TestOverflowPolicy_Valid(t *testing.T) {
	for _, p := range []OverflowPolicy{OverflowDropOldest, OverflowCountAndDrop} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if OverflowPolicy("block").Valid() {
		t.Error("unknown policy accepted")
	}
}
