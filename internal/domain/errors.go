package domain

import "errors"

var (
	// ErrProfileNotFound is returned when no profile exists for an identity.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNotPlaying is returned when an answer arrives outside the playing state.
	ErrNotPlaying = errors.New("game is not accepting answers")
	// ErrGameNotFound is returned when a user acts before a game was started.
	ErrGameNotFound = errors.New("game not found")
	// ErrAuthFailed indicates sign-in was rejected or interrupted.
	ErrAuthFailed = errors.New("sign-in failed")
	// ErrUnauthenticated indicates a missing, unknown or revoked token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidQuestion indicates a malformed question in the bank source.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrEmptyBank indicates the question source produced no questions.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrUnknownScreen indicates a navigation target the client cannot show.
	ErrUnknownScreen = errors.New("unknown screen")
)
