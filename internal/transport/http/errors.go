package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"pair-quiz-service/internal/domain"

	"github.com/google/uuid"
)

const maxAnswerLength = 500

// errValidation marks a malformed request.
var errValidation = errors.New("validation failed")

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type validationError struct {
	field   string
	message string
}

func (e *validationError) Error() string { return e.field + ": " + e.message }

func (e *validationError) Unwrap() error { return errValidation }

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyInGame),
		errors.Is(err, domain.ErrNotAParticipant):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Message: err.Error()}
	var vErr *validationError
	if errors.As(err, &vErr) {
		body = errorBody{Message: vErr.message, Field: vErr.field}
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		body.Message = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

type answerInput struct {
	Answer *string `json:"answer"`
}

func validateAnswerInput(in answerInput) (domain.AnswerSubmission, error) {
	if in.Answer == nil {
		return domain.AnswerSubmission{}, &validationError{field: "answer", message: "is required"}
	}
	answer := *in.Answer
	if strings.TrimSpace(answer) == "" {
		return domain.AnswerSubmission{}, &validationError{field: "answer", message: "must not be empty"}
	}
	if utf8.RuneCountInString(answer) > maxAnswerLength {
		return domain.AnswerSubmission{}, &validationError{field: "answer", message: "is too long"}
	}
	return domain.AnswerSubmission{Answer: answer}, nil
}

func validateGameID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &validationError{field: "id", message: "must be a UUID"}
	}
	return id.String(), nil
}
