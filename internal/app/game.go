package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"history-stairs/internal/bank"
	"history-stairs/internal/domain"
)

const (
	DefaultCorrectDelay   = 1000 * time.Millisecond
	DefaultIncorrectDelay = 1200 * time.Millisecond
)

// HighScoreUpdater persists a finished run's score when it beats the stored one.
type HighScoreUpdater interface {
	UpdateHighScoreIfGreater(ctx context.Context, userID string, score int) (domain.Profile, error)
}

// Timer is the handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. Tests swap in a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// GameConfig holds the feedback timings of a game.
type GameConfig struct {
	CorrectDelay   time.Duration
	IncorrectDelay time.Duration
	Scheduler      Scheduler
}

func (c GameConfig) withDefaults() GameConfig {
	if c.CorrectDelay <= 0 {
		c.CorrectDelay = DefaultCorrectDelay
	}
	if c.IncorrectDelay <= 0 {
		c.IncorrectDelay = DefaultIncorrectDelay
	}
	if c.Scheduler == nil {
		c.Scheduler = realScheduler{}
	}
	return c
}

// Game is one player's stair-climbing run. All transitions happen under mu;
// the only call made without it is the high score write.
type Game struct {
	userID   string
	selector *bank.Selector
	scores   HighScoreUpdater
	cfg      GameConfig

	mu          sync.Mutex
	epoch       uint64 // bumped by restart and close; stale timers compare against it
	closed      bool
	state       domain.GameState
	current     *domain.Question
	asked       bank.AskedSet
	score       int
	profile     domain.Profile
	newRecord   bool
	feedback    domain.Feedback
	selected    string
	timer       Timer
	subscribers map[chan domain.GameSnapshot]struct{}
}

// NewGame builds a game in the loading state. Call Start to draw the first question.
func NewGame(profile domain.Profile, selector *bank.Selector, scores HighScoreUpdater, cfg GameConfig) *Game {
	return &Game{
		userID:      profile.UserID,
		selector:    selector,
		scores:      scores,
		cfg:         cfg.withDefaults(),
		state:       domain.StateLoading,
		asked:       bank.NewAskedSet(),
		profile:     profile,
		subscribers: make(map[chan domain.GameSnapshot]struct{}),
	}
}

// UserID is the owner of the game.
func (g *Game) UserID() string {
	return g.userID
}

// Start resets the run and draws the first question. It is also the restart action
// and is valid from any state.
func (g *Game) Start() domain.GameSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return g.snapshotLocked()
	}

	g.epoch++
	g.stopTimerLocked()
	g.score = 0
	g.asked = bank.NewAskedSet()
	g.newRecord = false
	g.feedback = domain.FeedbackNone
	g.advanceLocked()
	return g.broadcastLocked()
}

// Restart is Start under the name the client uses.
func (g *Game) Restart() domain.GameSnapshot {
	return g.Start()
}

// Submit answers the current question. Outside the playing state it changes
// nothing and returns ErrNotPlaying.
func (g *Game) Submit(ctx context.Context, option string) (domain.GameSnapshot, error) {
	g.mu.Lock()
	if g.closed || g.state != domain.StatePlaying || g.current == nil {
		snap := g.snapshotLocked()
		g.mu.Unlock()
		return snap, domain.ErrNotPlaying
	}

	epoch := g.epoch
	g.selected = option
	g.state = domain.StateFeedback

	if option == g.current.Answer {
		g.feedback = domain.FeedbackCorrect
		g.score++
		g.armLocked(epoch, g.cfg.CorrectDelay, g.afterCorrectLocked)
		snap := g.broadcastLocked()
		g.mu.Unlock()
		return snap, nil
	}

	g.feedback = domain.FeedbackIncorrect
	score := g.score
	record := score > g.profile.HighScore
	if record {
		g.newRecord = true
	}
	g.broadcastLocked()
	g.mu.Unlock()

	// The run is over; game over is entered only once the write has settled.
	if record {
		g.persistHighScore(ctx, score)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed && g.epoch == epoch {
		g.armLocked(epoch, g.cfg.IncorrectDelay, g.afterIncorrectLocked)
	}
	return g.snapshotLocked(), nil
}

func (g *Game) persistHighScore(ctx context.Context, score int) {
	updated, err := g.scores.UpdateHighScoreIfGreater(ctx, g.userID, score)
	if errors.Is(err, domain.ErrProfileNotFound) {
		log.Printf("no profile for %s, high score %d not saved", g.userID, score)
		return
	}
	if err != nil {
		log.Printf("score update failed for %s: %v", g.userID, err)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if updated.HighScore >= g.profile.HighScore {
		g.profile = updated
	}
	if !g.closed {
		g.broadcastLocked()
	}
}

// Snapshot returns the current observable state.
func (g *Game) Snapshot() domain.GameSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Profile returns the cached profile, refreshed after a successful record write.
func (g *Game) Profile() domain.Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.profile
}

// Subscribe returns a channel that receives a snapshot after every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (g *Game) Subscribe() (<-chan domain.GameSnapshot, func()) {
	ch := make(chan domain.GameSnapshot, 8)

	g.mu.Lock()
	if g.closed {
		ch <- g.snapshotLocked()
		close(ch)
		g.mu.Unlock()
		return ch, func() {}
	}
	g.subscribers[ch] = struct{}{}
	// sent under mu so no broadcast can overtake it; the buffer is empty
	ch <- g.snapshotLocked()
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		if _, ok := g.subscribers[ch]; ok {
			delete(g.subscribers, ch)
			close(ch)
		}
		g.mu.Unlock()
	}
	return ch, cancel
}

// Close stops pending transitions and closes every subscription.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.epoch++
	g.stopTimerLocked()
	for ch := range g.subscribers {
		delete(g.subscribers, ch)
		close(ch)
	}
}

func (g *Game) advanceLocked() {
	g.state = domain.StateLoading
	g.selected = ""
	q, ok := g.selector.Next(g.asked)
	if !ok {
		g.current = nil
		g.state = domain.StateAllQuestionsAnswered
		return
	}
	g.asked.Add(q.ID)
	g.current = &q
	g.state = domain.StatePlaying
}

func (g *Game) afterCorrectLocked() {
	g.feedback = domain.FeedbackNone
	g.advanceLocked()
}

func (g *Game) afterIncorrectLocked() {
	g.state = domain.StateGameOver
}

func (g *Game) armLocked(epoch uint64, d time.Duration, next func()) {
	g.stopTimerLocked()
	g.timer = g.cfg.Scheduler.AfterFunc(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.closed || g.epoch != epoch {
			return
		}
		g.timer = nil
		next()
		g.broadcastLocked()
	})
}

func (g *Game) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Game) broadcastLocked() domain.GameSnapshot {
	snap := g.snapshotLocked()
	for ch := range g.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: drop its oldest snapshot so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (g *Game) snapshotLocked() domain.GameSnapshot {
	snap := domain.GameSnapshot{
		State:          g.state,
		SelectedOption: g.selected,
		Feedback:       g.feedback,
		Score:          g.score,
		Floor:          g.score + 1,
		HighScore:      g.profile.HighScore,
		NewRecord:      g.newRecord,
	}
	if g.current != nil {
		view := g.current.View()
		snap.Question = &view
		if g.state == domain.StateFeedback || g.state == domain.StateGameOver {
			snap.CorrectAnswer = g.current.Answer
		}
	}
	return snap
}
