package bank

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"history-stairs/internal/domain"
)

func TestNewRejectsInvalidQuestions(t *testing.T) {
	cases := map[string][]domain.Question{
		"empty bank":        nil,
		"missing id":        {{Prompt: "p", Options: []string{"a", "b"}, Answer: "a"}},
		"missing prompt":    {{ID: "q", Options: []string{"a", "b"}, Answer: "a"}},
		"single option":     {{ID: "q", Prompt: "p", Options: []string{"a"}, Answer: "a"}},
		"duplicate option":  {{ID: "q", Prompt: "p", Options: []string{"a", "a"}, Answer: "a"}},
		"answer not option": {{ID: "q", Prompt: "p", Options: []string{"a", "b"}, Answer: "c"}},
		"duplicate id": {
			{ID: "q", Prompt: "p1", Options: []string{"a", "b"}, Answer: "a"},
			{ID: "q", Prompt: "p2", Options: []string{"a", "b"}, Answer: "b"},
		},
	}
	for name, questions := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(questions)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidQuestion) && !errors.Is(err, domain.ErrEmptyBank) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewCopiesOptions(t *testing.T) {
	options := []string{"a", "b"}
	b, err := New([]domain.Question{{ID: "q", Prompt: "p", Options: options, Answer: "a"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	options[0] = "changed"
	q, ok := b.Get("q")
	if !ok || q.Options[0] != "a" {
		t.Fatalf("bank must not share the caller's option slice, got %+v", q)
	}
}

func TestDefaultBankLoads(t *testing.T) {
	b, err := Load(context.Background(), NewFileLoader(""))
	if err != nil {
		t.Fatalf("load default bank: %v", err)
	}
	if b.Len() < 10 {
		t.Fatalf("expected a populated default bank, got %d questions", b.Len())
	}
}

func TestFileLoaderReadsYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bank.yaml")
	jsonPath := filepath.Join(dir, "bank.json")
	writeFile(t, yamlPath, "version: 1\nquestions:\n  - id: q1\n    prompt: Q1\n    options: [a, b]\n    answer: a\n")
	writeFile(t, jsonPath, `{"version":1,"questions":[{"id":"q1","prompt":"Q1","options":["a","b"],"answer":"b"}]}`)

	for _, path := range []string{yamlPath, jsonPath} {
		questions, err := NewFileLoader(path).LoadQuestions(context.Background())
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		if len(questions) != 1 || questions[0].ID != "q1" {
			t.Fatalf("unexpected questions from %s: %+v", path, questions)
		}
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("version: 1\nquestions:\n  - id: q1\n    question: Q1\n"), "bank.yaml")
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	_, err = Parse([]byte(`{"questions":[],"extra":true}`), "bank.json")
	if err == nil {
		t.Fatalf("expected unknown field error for json")
	}
}

func TestParseRejectsEmptyQuestionList(t *testing.T) {
	_, err := Parse([]byte("version: 1\nquestions: []\n"), "bank.yaml")
	if !errors.Is(err, domain.ErrEmptyBank) {
		t.Fatalf("expected ErrEmptyBank, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
