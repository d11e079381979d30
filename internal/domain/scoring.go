package domain

import "strings"

// AnswerMatcher decides whether submitted text matches a question's accepted answers.
// The zero value performs a case-sensitive exact comparison.
type AnswerMatcher struct {
	Trim       bool
	IgnoreCase bool
}

// Score returns Correct when submitted matches any accepted answer.
func (m AnswerMatcher) Score(q GameQuestion, submitted string) AnswerStatus {
	got := m.normalize(submitted)
	for _, accepted := range q.CorrectAnswers {
		want := m.normalize(accepted)
		if m.IgnoreCase {
			if strings.EqualFold(got, want) {
				return AnswerCorrect
			}
			continue
		}
		if got == want {
			return AnswerCorrect
		}
	}
	return AnswerIncorrect
}

func (m AnswerMatcher) normalize(s string) string {
	if m.Trim {
		return strings.TrimSpace(s)
	}
	return s
}
