package http

import (
	"time"

	"pair-quiz-service/internal/domain"
)

// gameView is the public shape of a game. Correct answers never leave the server.
type gameView struct {
	ID                   string            `json:"id"`
	FirstPlayerProgress  progressView      `json:"firstPlayerProgress"`
	SecondPlayerProgress *progressView     `json:"secondPlayerProgress"`
	Questions            []questionView    `json:"questions"`
	Status               domain.GameStatus `json:"status"`
	PairCreatedDate      time.Time         `json:"pairCreatedDate"`
	StartGameDate        *time.Time        `json:"startGameDate"`
	FinishGameDate       *time.Time        `json:"finishGameDate"`
}

type progressView struct {
	Answers []answerView `json:"answers"`
	Player  playerView   `json:"player"`
	Score   int          `json:"score"`
}

type playerView struct {
	ID    string `json:"id"`
	Login string `json:"login"`
}

type questionView struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

type answerView struct {
	QuestionID   string              `json:"questionId"`
	AnswerStatus domain.AnswerStatus `json:"answerStatus"`
	AddedAt      time.Time           `json:"addedAt"`
}

func newGameView(g domain.Game) gameView {
	v := gameView{
		ID:                  g.ID,
		FirstPlayerProgress: newProgressView(g.FirstPlayer),
		Questions:           make([]questionView, 0, len(g.Questions)),
		Status:              g.Status,
		PairCreatedDate:     g.PairCreatedDate,
		StartGameDate:       g.StartGameDate,
		FinishGameDate:      g.FinishGameDate,
	}
	if g.SecondPlayer != nil {
		second := newProgressView(*g.SecondPlayer)
		v.SecondPlayerProgress = &second
	}
	for _, q := range g.Questions {
		v.Questions = append(v.Questions, questionView{ID: q.ID, Body: q.Body})
	}
	return v
}

func newProgressView(p domain.PlayerProgress) progressView {
	v := progressView{
		Answers: make([]answerView, 0, len(p.Answers)),
		Player:  playerView{ID: p.Player.ID, Login: p.Player.Login},
		Score:   p.Score,
	}
	for _, a := range p.Answers {
		v.Answers = append(v.Answers, newAnswerView(a))
	}
	return v
}

func newAnswerView(a domain.Answer) answerView {
	return answerView{QuestionID: a.QuestionID, AnswerStatus: a.Status, AddedAt: a.AddedAt}
}

func newGameViews(games []domain.Game) []gameView {
	out := make([]gameView, 0, len(games))
	for _, g := range games {
		out = append(out, newGameView(g))
	}
	return out
}
