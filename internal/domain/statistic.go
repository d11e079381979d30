package domain

import "math"

// BuildStatistic aggregates the finished games of userID.
func BuildStatistic(userID string, games []Game) Statistic {
	var st Statistic
	for i := range games {
		g := &games[i]
		if g.Status != StatusFinished {
			continue
		}
		p, ok := g.Progress(userID)
		if !ok {
			continue
		}
		st.GamesCount++
		st.SumScore += p.Score
		switch g.Winner() {
		case userID:
			st.WinsCount++
		case "":
			st.DrawsCount++
		default:
			st.LossesCount++
		}
	}
	if st.GamesCount > 0 {
		st.AvgScores = math.Round(float64(st.SumScore)/float64(st.GamesCount)*100) / 100
	}
	return st
}
