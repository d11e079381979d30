package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGameNotFound is returned when a game does not exist or the user has no current game.
	ErrGameNotFound = errors.New("game not found")
	// ErrUserNotFound is returned when the user directory does not know the caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidState indicates the game is not in the lifecycle state the operation requires.
	ErrInvalidState = errors.New("game is not in a valid state for this operation")
	// ErrAlreadyInGame is returned when a user with an unfinished game tries to connect again.
	ErrAlreadyInGame = errors.New("user already participates in an unfinished game")
	// ErrNotAParticipant is returned when a user acts on a game they are not part of.
	ErrNotAParticipant = errors.New("user is not a participant of this game")
	// ErrAlreadyAnswered is returned when the player has answered every question.
	ErrAlreadyAnswered = fmt.Errorf("%w: all questions already answered", ErrInvalidState)
	// ErrInsufficientQuestions means the bank cannot supply a full question set.
	ErrInsufficientQuestions = errors.New("not enough published questions")
)
