package domain

// DrawQuestions picks n distinct published questions uniformly at random.
// intn must behave like rand.Intn; the order of the result is random.
func DrawQuestions(pool []Question, n int, intn func(int) int) ([]Question, error) {
	published := make([]Question, 0, len(pool))
	for _, q := range pool {
		if q.Published {
			published = append(published, q)
		}
	}
	if n <= 0 {
		return []Question{}, nil
	}
	if len(published) < n {
		return nil, ErrInsufficientQuestions
	}
	// partial Fisher-Yates over the first n slots
	for i := 0; i < n; i++ {
		j := i + intn(len(published)-i)
		published[i], published[j] = published[j], published[i]
	}
	return published[:n:n], nil
}
