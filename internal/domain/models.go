package domain

import "time"

// AnonymousName is shown for players whose provider returned no display name.
const AnonymousName = "익명"

// Question is a multiple-choice question. ID is the dedup key for a session,
// Prompt is display text only.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []string `json:"options" yaml:"options"`
	Answer  string   `json:"answer" yaml:"answer"`
}

// QuestionView is a question as shown to a player, without the answer.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// View strips the answer.
func (q Question) View() QuestionView {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return QuestionView{ID: q.ID, Prompt: q.Prompt, Options: options}
}

// Profile is the persisted per-identity record.
type Profile struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	HighScore   int       `json:"highScore"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Identity is who the authenticator says is signed in.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// NewProfile returns a zero-score profile for a freshly seen identity.
func NewProfile(id Identity, now time.Time) Profile {
	name := id.DisplayName
	if name == "" {
		name = AnonymousName
	}
	return Profile{
		UserID:      id.UserID,
		DisplayName: name,
		HighScore:   0,
		AvatarURL:   id.AvatarURL,
		UpdatedAt:   now,
	}
}

// Credentials are what a sign-in provider hands back.
type Credentials struct {
	Provider    string `json:"provider"`
	Subject     string `json:"subject"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// AuthEvent notifies observers that the signed-in identity changed.
type AuthEvent struct {
	Identity Identity
	SignedIn bool
}

// RankingEntry is one row of the leaderboard.
type RankingEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	HighScore   int    `json:"highScore"`
}

// GameState is the screen state of a single-player game.
type GameState string

const (
	StateLoading              GameState = "loading"
	StatePlaying              GameState = "playing"
	StateFeedback             GameState = "feedback"
	StateGameOver             GameState = "gameOver"
	StateAllQuestionsAnswered GameState = "all_questions_answered"
)

// Feedback describes the outcome shown after an answer.
type Feedback string

const (
	FeedbackNone      Feedback = ""
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
)

// GameSnapshot is the observable state of a game.
type GameSnapshot struct {
	State          GameState     `json:"state"`
	Question       *QuestionView `json:"question,omitempty"`
	CorrectAnswer  string        `json:"correctAnswer,omitempty"` // set once the answer is revealed
	SelectedOption string        `json:"selectedOption,omitempty"`
	Feedback       Feedback      `json:"feedback,omitempty"`
	Score          int           `json:"score"`
	Floor          int           `json:"floor"`
	HighScore      int           `json:"highScore"`
	NewRecord      bool          `json:"newRecord"`
}

// Screen is a navigation target of the client.
type Screen string

const (
	ScreenGame    Screen = "game"
	ScreenRanking Screen = "ranking"
)

// ParseScreen validates a navigation target.
func ParseScreen(raw string) (Screen, error) {
	switch Screen(raw) {
	case ScreenGame, ScreenRanking:
		return Screen(raw), nil
	}
	return "", ErrUnknownScreen
}
