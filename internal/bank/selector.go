package bank

import (
	"math/rand"
	"sync"
	"time"

	"history-stairs/internal/domain"
)

// AskedSet holds the ids of questions already shown in a session.
type AskedSet map[string]struct{}

// NewAskedSet returns an empty set.
func NewAskedSet() AskedSet {
	return make(AskedSet)
}

func (s AskedSet) Add(id string) {
	s[id] = struct{}{}
}

func (s AskedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s AskedSet) Len() int {
	return len(s)
}

// Selector picks unasked questions uniformly at random.
type Selector struct {
	bank *Bank

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector(b *Bank) *Selector {
	return NewSelectorWithSource(b, rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource is used by tests that need a deterministic pick.
func NewSelectorWithSource(b *Bank, src rand.Source) *Selector {
	return &Selector{bank: b, rnd: rand.New(src)}
}

// Bank returns the bank the selector draws from.
func (s *Selector) Bank() *Bank {
	return s.bank
}

// Next returns a question whose id is not in asked. The boolean is false
// once every question in the bank has been asked.
func (s *Selector) Next(asked AskedSet) (domain.Question, bool) {
	available := make([]int, 0, s.bank.Len())
	for i, q := range s.bank.questions {
		if !asked.Has(q.ID) {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		return domain.Question{}, false
	}

	s.mu.Lock()
	pick := available[s.rnd.Intn(len(available))]
	s.mu.Unlock()
	return s.bank.questions[pick], true
}
