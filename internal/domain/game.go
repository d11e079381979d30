package domain

import "time"

// NewGame creates a pending game for its first player with the given question set.
func NewGame(id string, first Player, questions []Question, now time.Time) Game {
	snapshot := make([]GameQuestion, 0, len(questions))
	for _, q := range questions {
		snapshot = append(snapshot, q.Snapshot())
	}
	return Game{
		ID:              id,
		Status:          StatusPending,
		PairCreatedDate: now,
		Questions:       snapshot,
		FirstPlayer:     PlayerProgress{Player: first, Answers: []Answer{}},
	}
}

// HasPlayer reports whether userID occupies one of the two slots.
func (g *Game) HasPlayer(userID string) bool {
	return g.progress(userID) != nil
}

// Progress returns a copy of the participant's progress.
func (g *Game) Progress(userID string) (PlayerProgress, bool) {
	p := g.progress(userID)
	if p == nil {
		return PlayerProgress{}, false
	}
	return *p, true
}

// Participants returns the progress of every seated player in slot order.
func (g *Game) Participants() []PlayerProgress {
	out := []PlayerProgress{g.FirstPlayer}
	if g.SecondPlayer != nil {
		out = append(out, *g.SecondPlayer)
	}
	return out
}

func (g *Game) progress(userID string) *PlayerProgress {
	if g.FirstPlayer.Player.ID == userID {
		return &g.FirstPlayer
	}
	if g.SecondPlayer != nil && g.SecondPlayer.Player.ID == userID {
		return g.SecondPlayer
	}
	return nil
}

func (g *Game) opponent(userID string) *PlayerProgress {
	if g.FirstPlayer.Player.ID == userID {
		return g.SecondPlayer
	}
	if g.SecondPlayer != nil && g.SecondPlayer.Player.ID == userID {
		return &g.FirstPlayer
	}
	return nil
}

// AddSecondPlayer seats the second player and activates the game.
func (g *Game) AddSecondPlayer(p Player, now time.Time) error {
	if g.Status != StatusPending || g.SecondPlayer != nil {
		return ErrInvalidState
	}
	if g.FirstPlayer.Player.ID == p.ID {
		return ErrAlreadyInGame
	}
	g.SecondPlayer = &PlayerProgress{Player: p, Answers: []Answer{}}
	started := now
	g.StartGameDate = &started
	g.Status = StatusActive
	return nil
}

// NextQuestion returns the question the player has to answer next.
func (g *Game) NextQuestion(userID string) (GameQuestion, error) {
	p := g.progress(userID)
	if p == nil {
		return GameQuestion{}, ErrNotAParticipant
	}
	if len(p.Answers) >= len(g.Questions) {
		return GameQuestion{}, ErrAlreadyAnswered
	}
	return g.Questions[len(p.Answers)], nil
}

// SubmitAnswer scores text against the player's next question and appends the answer.
// When this answer completes the game, the first finisher's bonus is applied and
// the game moves to Finished.
func (g *Game) SubmitAnswer(userID, text string, matcher AnswerMatcher, now time.Time) (Answer, error) {
	if g.Status != StatusActive {
		return Answer{}, ErrInvalidState
	}
	question, err := g.NextQuestion(userID)
	if err != nil {
		return Answer{}, err
	}
	player := g.progress(userID)

	answer := Answer{
		QuestionID: question.ID,
		Status:     matcher.Score(question, text),
		AddedAt:    now,
	}
	player.Answers = append(player.Answers, answer)
	if answer.Status == AnswerCorrect {
		player.Score++
	}

	if player.Finished() {
		if other := g.opponent(userID); other != nil && other.Finished() {
			// other reached the last question first
			g.finish(other, now)
		}
	}
	return answer, nil
}

// ExpireIfDue finalizes an active game whose trailing player has not finished within
// grace of the opponent's last answer. Unanswered questions count as incorrect.
// A non-positive grace disables expiry.
func (g *Game) ExpireIfDue(now time.Time, grace time.Duration) bool {
	if grace <= 0 || g.Status != StatusActive || g.SecondPlayer == nil {
		return false
	}
	var leader, trailer *PlayerProgress
	switch {
	case g.FirstPlayer.Finished() && !g.SecondPlayer.Finished():
		leader, trailer = &g.FirstPlayer, g.SecondPlayer
	case g.SecondPlayer.Finished() && !g.FirstPlayer.Finished():
		leader, trailer = g.SecondPlayer, &g.FirstPlayer
	default:
		return false
	}
	finishedAt := leader.Answers[len(leader.Answers)-1].AddedAt
	if now.Sub(finishedAt) <= grace {
		return false
	}
	for i := len(trailer.Answers); i < len(g.Questions); i++ {
		trailer.Answers = append(trailer.Answers, Answer{
			QuestionID: g.Questions[i].ID,
			Status:     AnswerIncorrect,
			AddedAt:    now,
		})
	}
	g.finish(leader, now)
	return true
}

func (g *Game) finish(firstFinisher *PlayerProgress, now time.Time) {
	if firstFinisher.Score > 0 {
		firstFinisher.Score += BonusPoints
	}
	finished := now
	g.FinishGameDate = &finished
	g.Status = StatusFinished
}

// Winner returns the winning user ID, or "" for a draw or an unfinished game.
func (g *Game) Winner() string {
	if g.Status != StatusFinished || g.SecondPlayer == nil {
		return ""
	}
	switch {
	case g.FirstPlayer.Score > g.SecondPlayer.Score:
		return g.FirstPlayer.Player.ID
	case g.SecondPlayer.Score > g.FirstPlayer.Score:
		return g.SecondPlayer.Player.ID
	}
	return ""
}

// Clone returns a deep copy that shares no slices with g.
func (g Game) Clone() Game {
	out := g
	if g.StartGameDate != nil {
		t := *g.StartGameDate
		out.StartGameDate = &t
	}
	if g.FinishGameDate != nil {
		t := *g.FinishGameDate
		out.FinishGameDate = &t
	}
	out.Questions = make([]GameQuestion, len(g.Questions))
	for i, q := range g.Questions {
		answers := make([]string, len(q.CorrectAnswers))
		copy(answers, q.CorrectAnswers)
		out.Questions[i] = GameQuestion{ID: q.ID, Body: q.Body, CorrectAnswers: answers}
	}
	out.FirstPlayer = g.FirstPlayer.clone()
	if g.SecondPlayer != nil {
		second := g.SecondPlayer.clone()
		out.SecondPlayer = &second
	}
	return out
}

func (p PlayerProgress) clone() PlayerProgress {
	out := p
	out.Answers = make([]Answer, len(p.Answers))
	copy(out.Answers, p.Answers)
	return out
}

// Event builds the event describing the game's current state.
func (g *Game) Event(t EventType, now time.Time) GameEvent {
	players := make([]PlayerScore, 0, 2)
	for _, p := range g.Participants() {
		players = append(players, PlayerScore{UserID: p.Player.ID, Login: p.Player.Login, Score: p.Score})
	}
	return GameEvent{Type: t, GameID: g.ID, Status: g.Status, Players: players, OccurredAt: now}
}
