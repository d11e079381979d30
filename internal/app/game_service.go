package app

import (
	"context"
	"errors"
	"time"

	"pair-quiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options tunes a GameService. Nil collaborators fall back to no-ops.
type Options struct {
	Matcher domain.AnswerMatcher
	// FinishGrace finalizes games whose trailing player stalls; zero disables it.
	FinishGrace time.Duration
	Notifier    Notifier
	Events      EventPublisher
	Metrics     Metrics
	Logger      logrus.FieldLogger
	Clock       func() time.Time
	NewID       func() string
}

// GameService contains the pair game use cases.
type GameService struct {
	games     GameRepository
	questions QuestionBank
	users     UserDirectory

	matcher     domain.AnswerMatcher
	finishGrace time.Duration
	notifier    Notifier
	events      EventPublisher
	metrics     Metrics
	log         logrus.FieldLogger
	now         func() time.Time
	newID       func() string
}

func NewGameService(games GameRepository, questions QuestionBank, users UserDirectory, opts Options) *GameService {
	s := &GameService{
		games:       games,
		questions:   questions,
		users:       users,
		matcher:     opts.Matcher,
		finishGrace: opts.FinishGrace,
		notifier:    opts.Notifier,
		events:      opts.Events,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		now:         opts.Clock,
		newID:       opts.NewID,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.events == nil {
		s.events = nopEvents{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Connect puts the user into the pair queue: it fills the pending game if there
// is one, otherwise it creates a new pending game with a fresh question set.
func (s *GameService) Connect(ctx context.Context, userID string) (domain.Game, error) {
	player, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Game{}, err
	}

	var (
		game    domain.Game
		event   domain.EventType
		expired *domain.Game
	)
	err = s.games.InTx(ctx, func(ctx context.Context, tx GameTx) error {
		expired = nil

		current, err := tx.UnfinishedGameByUser(ctx, userID)
		switch {
		case err == nil:
			if !s.expire(&current) {
				return domain.ErrAlreadyInGame
			}
			if err := tx.UpdateGame(ctx, current); err != nil {
				return err
			}
			expired = &current
		case !errors.Is(err, domain.ErrGameNotFound):
			return err
		}

		pending, err := tx.PendingGame(ctx)
		switch {
		case err == nil:
			if err := pending.AddSecondPlayer(player, s.now()); err != nil {
				return err
			}
			if err := tx.UpdateGame(ctx, pending); err != nil {
				return err
			}
			game, event = pending, domain.EventPairStarted
			return nil
		case !errors.Is(err, domain.ErrGameNotFound):
			return err
		}

		questions, err := s.questions.DrawRandomSet(ctx, domain.QuestionsPerGame)
		if err != nil {
			return err
		}
		game = domain.NewGame(s.newID(), player, questions, s.now())
		if err := tx.CreateGame(ctx, game); err != nil {
			return err
		}
		event = domain.EventPairCreated
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("connect rejected")
		return domain.Game{}, err
	}

	if expired != nil {
		s.afterCommit(ctx, *expired, domain.EventPairFinished)
	}
	s.afterCommit(ctx, game, event)
	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"game_id": game.ID,
		"status":  game.Status,
	}).Info("user connected to pair")
	return game, nil
}

// SubmitAnswer records the player's answer to their next question of gameID.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, userID string, submission domain.AnswerSubmission) (domain.Answer, domain.Game, error) {
	return s.submit(ctx, userID, submission, func(ctx context.Context, tx GameTx) (domain.Game, error) {
		return tx.GameForUpdate(ctx, gameID)
	})
}

// SubmitCurrentAnswer records an answer in the caller's unfinished game.
func (s *GameService) SubmitCurrentAnswer(ctx context.Context, userID string, submission domain.AnswerSubmission) (domain.Answer, domain.Game, error) {
	return s.submit(ctx, userID, submission, func(ctx context.Context, tx GameTx) (domain.Game, error) {
		return tx.UnfinishedGameByUser(ctx, userID)
	})
}

type loadFunc func(ctx context.Context, tx GameTx) (domain.Game, error)

func (s *GameService) submit(ctx context.Context, userID string, submission domain.AnswerSubmission, load loadFunc) (domain.Answer, domain.Game, error) {
	var (
		answer  domain.Answer
		game    domain.Game
		expired bool
	)
	err := s.games.InTx(ctx, func(ctx context.Context, tx GameTx) error {
		g, err := load(ctx, tx)
		if err != nil {
			return err
		}
		// commit the expiry even though the answer itself is rejected
		if expired = s.expire(&g); expired {
			game = g
			return tx.UpdateGame(ctx, g)
		}
		a, err := g.SubmitAnswer(userID, submission.Answer, s.matcher, s.now())
		if err != nil {
			return err
		}
		if err := tx.UpdateGame(ctx, g); err != nil {
			return err
		}
		answer, game = a, g
		return nil
	})
	if err != nil {
		return domain.Answer{}, domain.Game{}, err
	}
	if expired {
		s.afterCommit(ctx, game, domain.EventPairFinished)
		return domain.Answer{}, domain.Game{}, domain.ErrInvalidState
	}

	s.metrics.ObserveAnswer(answer.Status)
	var event domain.EventType
	if game.Status == domain.StatusFinished {
		event = domain.EventPairFinished
	}
	s.afterCommit(ctx, game, event)
	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"game_id":     game.ID,
		"question_id": answer.QuestionID,
		"status":      answer.Status,
	}).Debug("answer recorded")
	return answer, game, nil
}

// CurrentGame returns the caller's pending or active game.
func (s *GameService) CurrentGame(ctx context.Context, userID string) (domain.Game, error) {
	if s.finishGrace <= 0 {
		return s.games.UnfinishedGameByUser(ctx, userID)
	}
	game, err := s.settle(ctx, func(ctx context.Context, tx GameTx) (domain.Game, error) {
		return tx.UnfinishedGameByUser(ctx, userID)
	})
	if err != nil {
		return domain.Game{}, err
	}
	if game.Status == domain.StatusFinished {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

// GameByID returns a game the caller participates in.
func (s *GameService) GameByID(ctx context.Context, userID, gameID string) (domain.Game, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, err
	}
	if !game.HasPlayer(userID) {
		return domain.Game{}, domain.ErrNotAParticipant
	}
	if s.finishGrace <= 0 || game.Status != domain.StatusActive {
		return game, nil
	}
	return s.settle(ctx, func(ctx context.Context, tx GameTx) (domain.Game, error) {
		return tx.GameForUpdate(ctx, gameID)
	})
}

// MyGames lists every game of the user, newest first.
func (s *GameService) MyGames(ctx context.Context, userID string) ([]domain.Game, error) {
	return s.games.ListGamesByUser(ctx, userID)
}

// MyStatistic aggregates the user's finished games.
func (s *GameService) MyStatistic(ctx context.Context, userID string) (domain.Statistic, error) {
	games, err := s.games.ListGamesByUser(ctx, userID)
	if err != nil {
		return domain.Statistic{}, err
	}
	return domain.BuildStatistic(userID, games), nil
}

// Subscribe returns a channel that receives snapshots of gameID after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, gameID string) (<-chan domain.Game, func(), error) {
	return s.notifier.Subscribe(ctx, gameID)
}

// settle loads a game in a transaction and finalizes it if its finish grace elapsed.
func (s *GameService) settle(ctx context.Context, load loadFunc) (domain.Game, error) {
	var (
		game    domain.Game
		expired bool
	)
	err := s.games.InTx(ctx, func(ctx context.Context, tx GameTx) error {
		g, err := load(ctx, tx)
		if err != nil {
			return err
		}
		game = g
		if expired = s.expire(&game); expired {
			return tx.UpdateGame(ctx, game)
		}
		return nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	if expired {
		s.afterCommit(ctx, game, domain.EventPairFinished)
	}
	return game, nil
}

func (s *GameService) expire(game *domain.Game) bool {
	return game.ExpireIfDue(s.now(), s.finishGrace)
}

// afterCommit notifies subscribers and, when event is set, publishes it.
func (s *GameService) afterCommit(ctx context.Context, game domain.Game, event domain.EventType) {
	entry := s.log.WithField("game_id", game.ID)
	if err := s.notifier.Publish(ctx, game); err != nil {
		entry.WithError(err).Warn("notify subscribers failed")
	}
	if event == "" {
		return
	}
	s.metrics.ObserveEvent(event)
	if err := s.events.Publish(ctx, game.Event(event, s.now())); err != nil {
		entry.WithError(err).WithField("event", event).Warn("publish event failed")
	}
}
