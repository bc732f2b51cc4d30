package bank

import (
	"context"
	"fmt"
	"log"
	"strings"

	"history-stairs/internal/domain"
)

// Loader fetches the question list from a backing source (file, database).
type Loader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// Bank is the immutable, ordered question set for the process.
type Bank struct {
	questions []domain.Question
	byID      map[string]int
}

// Load builds a Bank from a loader. Call once at startup.
func Load(ctx context.Context, loader Loader) (*Bank, error) {
	questions, err := loader.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return New(questions)
}

// New validates questions and returns a Bank holding a private copy.
func New(questions []domain.Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyBank
	}
	b := &Bank{
		questions: make([]domain.Question, 0, len(questions)),
		byID:      make(map[string]int, len(questions)),
	}
	prompts := make(map[string]string, len(questions))
	for i, q := range questions {
		if err := Validate(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("question %d: duplicate id %q: %w", i, q.ID, domain.ErrInvalidQuestion)
		}
		// Same wording under two ids stays two questions; worth a look though.
		if other, seen := prompts[q.Prompt]; seen {
			log.Printf("bank: questions %q and %q share the same prompt", other, q.ID)
		}
		prompts[q.Prompt] = q.ID

		options := make([]string, len(q.Options))
		copy(options, q.Options)
		q.Options = options
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
	}
	return b, nil
}

// Validate checks a single question's structure.
func Validate(q domain.Question) error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("missing id: %w", domain.ErrInvalidQuestion)
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%s: missing prompt: %w", q.ID, domain.ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%s: needs at least two options: %w", q.ID, domain.ErrInvalidQuestion)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%s: duplicate option %q: %w", q.ID, opt, domain.ErrInvalidQuestion)
		}
		seen[opt] = struct{}{}
	}
	if _, ok := seen[q.Answer]; !ok {
		return fmt.Errorf("%s: answer %q is not an option: %w", q.ID, q.Answer, domain.ErrInvalidQuestion)
	}
	return nil
}

// Len is the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Get looks a question up by id.
func (b *Bank) Get(id string) (domain.Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return domain.Question{}, false
	}
	return b.questions[i], true
}

// Questions returns the bank in load order. The slice is shared; do not modify.
func (b *Bank) Questions() []domain.Question {
	return b.questions
}
