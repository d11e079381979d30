package http

import (
	"encoding/json"
	"net/http"
	"time"

	"pair-quiz-service/internal/app"
	"pair-quiz-service/internal/auth"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// BasePath prefixes every pair game route.
const BasePath = "/pair-games-quiz"

const maxBodyBytes = 4 << 10

// Observer receives transport level measurements.
type Observer interface {
	ObserveRequest(route string, code int, took time.Duration)
	SubscriberOpened()
	SubscriberClosed()
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration) {}
func (nopObserver) SubscriberOpened()                         {}
func (nopObserver) SubscriberClosed()                         {}

// Handler serves the pair game REST API.
type Handler struct {
	service *app.GameService
	ws      *WSHandler
	log     logrus.FieldLogger
	metrics Observer
}

func NewHandler(service *app.GameService, logger logrus.FieldLogger, metrics Observer) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = nopObserver{}
	}
	return &Handler{
		service: service,
		ws:      NewWSHandler(service, logger, metrics),
		log:     logger,
		metrics: metrics,
	}
}

// Register mounts the API under BasePath. Every route requires a bearer token.
func (h *Handler) Register(r *mux.Router, tokens TokenVerifier) {
	api := r.PathPrefix(BasePath).Subrouter()
	api.Use(h.observe, Authenticate(tokens))

	api.HandleFunc("/pairs/connection", h.connect).Methods(http.MethodPost)
	api.HandleFunc("/pairs/my-current/answers", h.submitAnswer).Methods(http.MethodPost)
	api.HandleFunc("/pairs/my-current/ws", h.ws.ServeWS).Methods(http.MethodGet)
	api.HandleFunc("/pairs/my-current", h.currentGame).Methods(http.MethodGet)
	api.HandleFunc("/pairs/my", h.myGames).Methods(http.MethodGet)
	api.HandleFunc("/users/my-statistic", h.myStatistic).Methods(http.MethodGet)
	// must stay last so the fixed /pairs/... paths win
	api.HandleFunc("/pairs/{id}", h.gameByID).Methods(http.MethodGet)
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	player, _ := auth.PlayerFrom(r.Context())
	game, err := h.service.Connect(r.Context(), player.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(game))
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	player, _ := auth.PlayerFrom(r.Context())

	var in answerInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		h.writeError(w, r, &validationError{field: "body", message: "must be a JSON object"})
		return
	}
	submission, err := validateAnswerInput(in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	_, game, err := h.service.SubmitCurrentAnswer(r.Context(), player.ID, submission)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(game))
}

func (h *Handler) currentGame(w http.ResponseWriter, r *http.Request) {
	player, _ := auth.PlayerFrom(r.Context())
	game, err := h.service.CurrentGame(r.Context(), player.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(game))
}

func (h *Handler) gameByID(w http.ResponseWriter, r *http.Request) {
	player, _ := auth.PlayerFrom(r.Context())
	gameID, err := validateGameID(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	game, err := h.service.GameByID(r.Context(), player.ID, gameID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(game))
}

func (h *Handler) myGames(w http.ResponseWriter, r *http.Request) {
	player, _ := auth.PlayerFrom(r.Context())
	games, err := h.service.MyGames(r.Context(), player.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameViews(games))
}

func (h *Handler) myStatistic(w http.ResponseWriter, r *http.Request) {
	player, _ := auth.PlayerFrom(r.Context())
	stat, err := h.service.MyStatistic(r.Context(), player.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stat)
}
