package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pair-quiz-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.ObserveEvent(domain.EventPairCreated)
	r.ObserveEvent(domain.EventPairCreated)
	r.ObserveEvent(domain.EventPairFinished)
	r.ObserveAnswer(domain.AnswerCorrect)
	r.SubscriberOpened()
	r.SubscriberOpened()
	r.SubscriberClosed()

	if got := testutil.ToFloat64(r.events.WithLabelValues("pair.created")); got != 2 {
		t.Fatalf("expected 2 created events, got %v", got)
	}
	if got := testutil.ToFloat64(r.events.WithLabelValues("pair.finished")); got != 1 {
		t.Fatalf("expected 1 finished event, got %v", got)
	}
	if got := testutil.ToFloat64(r.answers.WithLabelValues("Correct")); got != 1 {
		t.Fatalf("expected 1 correct answer, got %v", got)
	}
	if got := testutil.ToFloat64(r.liveSubscribers); got != 1 {
		t.Fatalf("expected 1 live subscriber, got %v", got)
	}
}

func TestRecorderHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.ObserveAnswer(domain.AnswerIncorrect)
	r.ObserveRequest("/pair-games-quiz/pairs/connection", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`pair_quiz_answers_total{status="Incorrect"} 1`,
		"pair_quiz_http_request_duration_seconds_count",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}
