package app

import (
	"sort"

	"quizlive-service/internal/domain"
)

// LeaderboardCalculator derives ranked, tie-broken standings. Every
// call re-sorts the full candidate set; there is no incremental update,
// so callers needing scale should debounce recomputation rather than
// expect deltas.
type LeaderboardCalculator struct{}

// ComputeRoom ranks the live participants of one room: score
// descending, then time spent ascending (the faster finisher wins the
// tie), then user id for a strict total order. Ranks come out as the
// contiguous sequence 1..N even when scores tie.
func (LeaderboardCalculator) ComputeRoom(snap domain.RoomSnapshot) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		accuracy := 0.0
		if p.AnswersSubmitted > 0 {
			accuracy = float64(p.CorrectAnswers) / float64(p.AnswersSubmitted) * 100
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:           p.UserID,
			DisplayName:      p.DisplayName,
			Score:            p.CurrentScore,
			Accuracy:         accuracy,
			TotalAnswered:    p.AnswersSubmitted,
			TimeSpentSeconds: p.TimeSpentSeconds,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TimeSpentSeconds != entries[j].TimeSpentSeconds {
			return entries[i].TimeSpentSeconds < entries[j].TimeSpentSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	return assignRanks(entries)
}

// ComputeHistorical ranks persisted score records with the same score
// desc / time asc policy as the room variant.
func (LeaderboardCalculator) ComputeHistorical(records []domain.ScoreRecord, displayNames map[string]string) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:           rec.UserID,
			DisplayName:      displayNames[rec.UserID],
			Score:            rec.Score,
			Accuracy:         rec.Accuracy,
			TotalAnswered:    rec.TotalQuestions,
			TimeSpentSeconds: rec.TimeSpentSeconds,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TimeSpentSeconds != entries[j].TimeSpentSeconds {
			return entries[i].TimeSpentSeconds < entries[j].TimeSpentSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	return assignRanks(entries)
}

// ComputeGlobal ranks gamification projections: total XP descending,
// then average score descending, then user id.
func (LeaderboardCalculator) ComputeGlobal(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	ranked := make([]domain.LeaderboardEntry, len(entries))
	copy(ranked, entries)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalXP != ranked[j].TotalXP {
			return ranked[i].TotalXP > ranked[j].TotalXP
		}
		if ranked[i].AverageScore != ranked[j].AverageScore {
			return ranked[i].AverageScore > ranked[j].AverageScore
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return assignRanks(ranked)
}

func assignRanks(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
