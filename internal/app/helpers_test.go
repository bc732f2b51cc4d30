package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"history-stairs/internal/app"
	"history-stairs/internal/bank"
	"history-stairs/internal/domain"
	"history-stairs/internal/infra/memory"
)

// manualScheduler collects callbacks and runs them when the test says so.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{delay: d, f: f}
	s.pending = append(s.pending, timer)
	return timer
}

// fire runs every pending callback, including stopped ones, so tests can prove
// stale callbacks are ignored by the game itself.
func (s *manualScheduler) fire() int {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, timer := range pending {
		timer.f()
	}
	return len(pending)
}

func (s *manualScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *manualScheduler) lastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0
	}
	return s.pending[len(s.pending)-1].delay
}

// recordingScores wraps a profile store and counts score writes.
type recordingScores struct {
	store  *memory.ProfileStore
	err    error
	calls  int
	scores []int
}

func (r *recordingScores) UpdateHighScoreIfGreater(ctx context.Context, userID string, score int) (domain.Profile, error) {
	r.calls++
	r.scores = append(r.scores, score)
	if r.err != nil {
		return domain.Profile{}, r.err
	}
	profile, _, err := r.store.UpdateHighScoreIfGreater(ctx, userID, score)
	return profile, err
}

func newRecordingScores(t *testing.T, userID string, highScore int) *recordingScores {
	t.Helper()
	store := memory.NewProfileStore()
	ctx := context.Background()
	if _, err := store.UpsertProfile(ctx, domain.Identity{UserID: userID, DisplayName: "Alice"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if _, _, err := store.UpdateHighScoreIfGreater(ctx, userID, highScore); err != nil {
		t.Fatalf("seed score: %v", err)
	}
	return &recordingScores{store: store}
}

func singleQuestionBank(t *testing.T) *bank.Selector {
	t.Helper()
	return selectorFor(t, []domain.Question{
		{ID: "q1", Prompt: "Q1", Options: []string{"a", "b"}, Answer: "a"},
	})
}

func selectorFor(t *testing.T, questions []domain.Question) *bank.Selector {
	t.Helper()
	b, err := bank.Load(context.Background(), memory.NewStaticQuestionLoader(questions))
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	return bank.NewSelector(b)
}

// sameAnswerBank has n questions that all expect "right".
func sameAnswerBank(t *testing.T, n int) *bank.Selector {
	t.Helper()
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		questions = append(questions, domain.Question{
			ID:      "q-" + id,
			Prompt:  "Question " + id,
			Options: []string{"right", "wrong"},
			Answer:  "right",
		})
	}
	return selectorFor(t, questions)
}
