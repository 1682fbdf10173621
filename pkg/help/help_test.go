package help

import (
	"strings"
	"testing"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, Version) {
		t.Error("QUICKREF does not contain version string")
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
}

func TestAllExpectedTopics(t *testing.T) {
	expected := []string{"syntax", "types", "scoping", "modules", "project", "diagnostics", "examples"}
	for _, e := range expected {
		if _, ok := Topics[e]; !ok {
			t.Errorf("missing expected topic %q", e)
		}
	}
	if len(Topics) != len(expected) {
		t.Errorf("expected %d topics, got %d", len(expected), len(Topics))
	}
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopicExact(t *testing.T) {
	name, content, err := MatchTopic("syntax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "syntax" {
		t.Errorf("expected name 'syntax', got %q", name)
	}
	if content == "" {
		t.Error("expected non-empty content")
	}
}

func TestMatchTopicPrefix(t *testing.T) {
	name, _, err := MatchTopic("diag")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "diagnostics" {
		t.Errorf("expected 'diagnostics', got %q", name)
	}
}

func TestMatchTopicPrefixExamples(t *testing.T) {
	name, _, err := MatchTopic("ex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "examples" {
		t.Errorf("expected 'examples', got %q", name)
	}
}

func TestMatchTopicUnknown(t *testing.T) {
	_, _, err := MatchTopic("nonexistent")
	if err == nil {
		t.Error("expected error for unknown topic")
	}
}

func TestMatchTopicEmptyQuery(t *testing.T) {
	_, _, err := MatchTopic("   ")
	if err == nil {
		t.Error("expected error for empty query")
	}
	_, _, err = MatchTopic("syntaxes")
	if err == nil {
		t.Error("expected error for query longer than any topic")
	}
}

func TestErrorIndex(t *testing.T) {
	idx := ErrorIndex()
	for _, code := range []string{"E_STACK_OVERFLOW", "E_MODULE_RESOLUTION", "E_DIVISION_BY_ZERO"} {
		if !strings.Contains(idx, code) {
			t.Errorf("ErrorIndex missing %s", code)
		}
	}
}

func TestErrorIndexCount(t *testing.T) {
	idx := ErrorIndex()
	if !strings.Contains(idx, "Total: 19 codes") {
		t.Errorf("ErrorIndex should report 19 codes, got:\n%s", idx)
	}
}

func TestDiagnosticsTopicEmbedsErrorIndex(t *testing.T) {
	if !strings.Contains(Topics["diagnostics"], ErrorIndex()) {
		t.Error("diagnostics topic does not include the error index")
	}
}

func TestMatchTopicAmbiguousPrefix(t *testing.T) {
	_, _, err := MatchTopic("s")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguous error, got %v", err)
	}
	name, _, err := MatchTopic("sc")
	if err != nil || name != "scoping" {
		t.Errorf("MatchTopic(sc) = %q, %v", name, err)
	}
}

func TestMatchTopicCaseInsensitive(t *testing.T) {
	name, _, err := MatchTopic("  Modules ")
	if err != nil || name != "modules" {
		t.Errorf("MatchTopic(Modules) = %q, %v", name, err)
	}
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", topic, err)
			continue
		}
		if name != topic {
			t.Errorf("MatchTopic(%q) returned name %q", topic, name)
		}
		if content == "" {
			t.Errorf("MatchTopic(%q) returned empty content", topic)
		}
	}
}
