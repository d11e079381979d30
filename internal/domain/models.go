package domain

import "time"

// QuestionsPerGame is the number of questions each pair answers.
const QuestionsPerGame = 5

// BonusPoints is awarded to the player who finishes first with a positive score.
const BonusPoints = 1

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	StatusPending  GameStatus = "PendingSecondPlayer"
	StatusActive   GameStatus = "Active"
	StatusFinished GameStatus = "Finished"
)

// AnswerStatus is the scoring outcome of a single answer.
type AnswerStatus string

const (
	AnswerCorrect   AnswerStatus = "Correct"
	AnswerIncorrect AnswerStatus = "Incorrect"
)

// Question is a bank entry as managed by the question admin.
type Question struct {
	ID             string    `json:"id" yaml:"id"`
	Body           string    `json:"body" yaml:"body"`
	CorrectAnswers []string  `json:"correctAnswers" yaml:"correctAnswers"`
	Published      bool      `json:"published" yaml:"published"`
	CreatedAt      time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt      time.Time `json:"updatedAt" yaml:"-"`
}

// GameQuestion is the snapshot of a question taken when a game is created.
type GameQuestion struct {
	ID             string   `json:"id"`
	Body           string   `json:"body"`
	CorrectAnswers []string `json:"correctAnswers"`
}

// Snapshot copies the fields a game needs so later edits do not leak in.
func (q Question) Snapshot() GameQuestion {
	answers := make([]string, len(q.CorrectAnswers))
	copy(answers, q.CorrectAnswers)
	return GameQuestion{ID: q.ID, Body: q.Body, CorrectAnswers: answers}
}

// Player identifies a participant.
type Player struct {
	ID    string `json:"id" yaml:"id"`
	Login string `json:"login" yaml:"login"`
}

// Answer is an appended, immutable answer record.
type Answer struct {
	QuestionID string       `json:"questionId"`
	Status     AnswerStatus `json:"answerStatus"`
	AddedAt    time.Time    `json:"addedAt"`
}

// PlayerProgress tracks one player's participation in one game.
type PlayerProgress struct {
	Player  Player   `json:"player"`
	Score   int      `json:"score"`
	Answers []Answer `json:"answers"`
}

// Finished reports whether the player answered every question.
func (p PlayerProgress) Finished() bool {
	return len(p.Answers) >= QuestionsPerGame
}

// CorrectCount counts correct answers.
func (p PlayerProgress) CorrectCount() int {
	n := 0
	for _, a := range p.Answers {
		if a.Status == AnswerCorrect {
			n++
		}
	}
	return n
}

// Game is a single pair game instance.
type Game struct {
	ID              string          `json:"id"`
	Status          GameStatus      `json:"status"`
	PairCreatedDate time.Time       `json:"pairCreatedDate"`
	StartGameDate   *time.Time      `json:"startGameDate"`
	FinishGameDate  *time.Time      `json:"finishGameDate"`
	Questions       []GameQuestion  `json:"questions"`
	FirstPlayer     PlayerProgress  `json:"firstPlayerProgress"`
	SecondPlayer    *PlayerProgress `json:"secondPlayerProgress"`
}

// AnswerSubmission carries the raw text a player submitted.
type AnswerSubmission struct {
	Answer string
}

// Statistic aggregates a user's finished games.
type Statistic struct {
	SumScore    int     `json:"sumScore"`
	AvgScores   float64 `json:"avgScores"`
	GamesCount  int     `json:"gamesCount"`
	WinsCount   int     `json:"winsCount"`
	LossesCount int     `json:"lossesCount"`
	DrawsCount  int     `json:"drawsCount"`
}

// EventType names a published game event.
type EventType string

const (
	EventPairCreated  EventType = "pair.created"
	EventPairStarted  EventType = "pair.started"
	EventPairFinished EventType = "pair.finished"
)

// GameEvent is emitted after a lifecycle transition has been committed.
type GameEvent struct {
	Type       EventType     `json:"type"`
	GameID     string        `json:"gameId"`
	Status     GameStatus    `json:"status"`
	Players    []PlayerScore `json:"players"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// PlayerScore is a compact score line used in events.
type PlayerScore struct {
	UserID string `json:"userId"`
	Login  string `json:"login"`
	Score  int    `json:"score"`
}
