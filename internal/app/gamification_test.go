package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlive-service/internal/app"
	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/memory"
)

type recordingSync struct {
	calls     []domain.ProfileSummary
	returnErr error
}

func (s *recordingSync) PublishProfileSummary(_ context.Context, _ string, summary domain.ProfileSummary) error {
	s.calls = append(s.calls, summary)
	return s.returnErr
}

func newTestEngine(idsync app.IdentitySync) *app.GamificationEngine {
	engine := app.NewGamificationEngine(memory.NewGateway(), memory.NewGateway(), idsync)
	engine.SetDispatch(func(f func()) { f() })
	return engine
}

func TestCalculateXPBreakdown(t *testing.T) {
	xp := app.CalculateXP(80, 80, 90, 3)

	if xp.BaseXP != 80 {
		t.Fatalf("base = %d, want 80", xp.BaseXP)
	}
	if xp.AccuracyBonus != 40 {
		t.Fatalf("accuracy bonus = %d, want 40", xp.AccuracyBonus)
	}
	if xp.TimeBonus != 23 {
		t.Fatalf("time bonus = %d, want 23", xp.TimeBonus)
	}
	if xp.StreakBonus != 15 {
		t.Fatalf("streak bonus = %d, want 15", xp.StreakBonus)
	}
	if xp.CompletionBonus != 10 {
		t.Fatalf("completion bonus = %d, want 10", xp.CompletionBonus)
	}
	if xp.Total != 168 {
		t.Fatalf("total = %d, want 168", xp.Total)
	}
}

func TestCalculateXPBonusClamps(t *testing.T) {
	xp := app.CalculateXP(50, 50, 3600, 40)
	if xp.TimeBonus != 0 {
		t.Fatalf("time bonus for an hour-long attempt = %d, want 0", xp.TimeBonus)
	}
	if xp.StreakBonus != 100 {
		t.Fatalf("streak bonus = %d, want capped at 100", xp.StreakBonus)
	}
}

func TestSettleAttemptFirstCompletion(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(nil)
	engine.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	settlement, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
		QuizID: "quiz-1", Subject: "math", Score: 100, Accuracy: 100, TimeSpentSeconds: 60,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	p := settlement.Profile
	if p.TotalQuizzes != 1 || p.PerfectScores != 1 {
		t.Fatalf("counters = %d quizzes, %d perfect; want 1 and 1", p.TotalQuizzes, p.PerfectScores)
	}
	if p.CurrentStreak != 1 || p.MaxStreak != 1 {
		t.Fatalf("streak = %d/%d, want 1/1", p.CurrentStreak, p.MaxStreak)
	}
	if p.AverageAccuracy != 100 {
		t.Fatalf("average accuracy = %f, want 100", p.AverageAccuracy)
	}
	// 100 + 50 + 24 + 5 + 10
	if p.TotalXP != 189 {
		t.Fatalf("total XP = %d, want 189", p.TotalXP)
	}
	if settlement.Rank != 1 {
		t.Fatalf("rank = %d, want 1", settlement.Rank)
	}

	wantBadges := map[string]bool{"first_quiz": false, "accuracy_90": false, "accuracy_100": false}
	for _, def := range settlement.NewBadges {
		if _, ok := wantBadges[def.ID]; !ok {
			t.Fatalf("unexpected badge %s", def.ID)
		}
		wantBadges[def.ID] = true
	}
	for id, seen := range wantBadges {
		if !seen {
			t.Fatalf("expected badge %s to be earned", id)
		}
	}
}

func TestStreakTransitions(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(nil)

	day := func(d int) func() time.Time {
		return func() time.Time { return time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC) }
	}
	settle := func() domain.UserGamificationProfile {
		s, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
			QuizID: "quiz-1", Subject: "math", Score: 70, Accuracy: 70, TimeSpentSeconds: 30,
		})
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		return s.Profile
	}

	engine.SetClock(day(1))
	if p := settle(); p.CurrentStreak != 1 {
		t.Fatalf("first day streak = %d, want 1", p.CurrentStreak)
	}

	// Same day keeps the streak.
	engine.SetClock(day(1))
	if p := settle(); p.CurrentStreak != 1 {
		t.Fatalf("same day streak = %d, want 1", p.CurrentStreak)
	}

	// Consecutive days extend it.
	engine.SetClock(day(2))
	if p := settle(); p.CurrentStreak != 2 {
		t.Fatalf("next day streak = %d, want 2", p.CurrentStreak)
	}
	engine.SetClock(day(3))
	if p := settle(); p.CurrentStreak != 3 {
		t.Fatalf("third day streak = %d, want 3", p.CurrentStreak)
	}

	// A gap resets to 1 but the max survives.
	engine.SetClock(day(7))
	p := settle()
	if p.CurrentStreak != 1 {
		t.Fatalf("streak after gap = %d, want 1", p.CurrentStreak)
	}
	if p.MaxStreak != 3 {
		t.Fatalf("max streak = %d, want 3", p.MaxStreak)
	}
}

func TestBadgesAreAwardedOnce(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(nil)
	engine.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	first, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
		QuizID: "quiz-1", Subject: "math", Score: 60, Accuracy: 60, TimeSpentSeconds: 30,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(first.NewBadges) != 1 || first.NewBadges[0].ID != "first_quiz" {
		t.Fatalf("expected only first-quiz badge, got %+v", first.NewBadges)
	}

	second, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
		QuizID: "quiz-2", Subject: "math", Score: 60, Accuracy: 60, TimeSpentSeconds: 30,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	for _, def := range second.NewBadges {
		if def.ID == "first_quiz" {
			t.Fatalf("first-quiz badge awarded twice")
		}
	}
	if got := len(second.Profile.Badges); got != 1 {
		t.Fatalf("badge count = %d, want 1", got)
	}
}

func TestSubjectMasteryIsMonotonic(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(nil)
	engine.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	settle := func(score int) domain.UserGamificationProfile {
		s, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
			QuizID: "quiz-1", Subject: "math", Score: score, Accuracy: float64(score), TimeSpentSeconds: 30,
		})
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		return s.Profile
	}

	for i := 0; i < 4; i++ {
		if p := settle(90); p.SubjectMasteryCount != 0 {
			t.Fatalf("mastery before 5 highs = %d, want 0", p.SubjectMasteryCount)
		}
	}
	if p := settle(90); p.SubjectMasteryCount != 1 {
		t.Fatalf("mastery at 5 highs = %d, want 1", p.SubjectMasteryCount)
	}
	if p := settle(90); p.SubjectMasteryCount != 2 {
		t.Fatalf("mastery keeps accruing while the run holds, got %d", p.SubjectMasteryCount)
	}

	// A low score breaks the run but never rolls the counter back.
	p := settle(40)
	if p.SubjectMasteryCount != 2 {
		t.Fatalf("mastery after reset = %d, want 2", p.SubjectMasteryCount)
	}
	if p.SubjectStats["math"].ConsecutiveHighScores != 0 {
		t.Fatalf("consecutive run should reset, got %d", p.SubjectStats["math"].ConsecutiveHighScores)
	}
}

func TestIdentitySyncFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	idsync := &recordingSync{returnErr: errors.New("directory down")}
	engine := newTestEngine(idsync)
	engine.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	settlement, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
		QuizID: "quiz-1", Subject: "math", Score: 80, Accuracy: 80, TimeSpentSeconds: 90,
	})
	if err != nil {
		t.Fatalf("settlement must not surface sync errors, got %v", err)
	}
	if len(idsync.calls) != 1 {
		t.Fatalf("sync called %d times, want 1", len(idsync.calls))
	}
	if idsync.calls[0].TotalXP != settlement.Profile.TotalXP {
		t.Fatalf("published XP = %d, profile XP = %d", idsync.calls[0].TotalXP, settlement.Profile.TotalXP)
	}
}

func TestGlobalLeaderboardReranksOnSettlement(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(nil)
	engine.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	settle := func(userID string, score int) {
		if _, err := engine.SettleAttempt(ctx, userID, userID, app.Attempt{
			QuizID: "quiz-1", Subject: "math", Score: score, Accuracy: float64(score), TimeSpentSeconds: 30,
		}); err != nil {
			t.Fatalf("settle %s: %v", userID, err)
		}
	}

	settle("u1", 50)
	settle("u2", 90)

	board := engine.GlobalLeaderboard(10)
	if len(board) != 2 {
		t.Fatalf("board size = %d, want 2", len(board))
	}
	if board[0].UserID != "u2" || board[0].Rank != 1 {
		t.Fatalf("expected u2 on top, got %+v", board[0])
	}
	if board[1].UserID != "u1" || board[1].Rank != 2 {
		t.Fatalf("expected u1 second, got %+v", board[1])
	}

	// A second attempt by the trailing user can overtake.
	settle("u1", 100)
	board = engine.GlobalLeaderboard(10)
	if board[0].UserID != "u1" {
		t.Fatalf("expected u1 to overtake, got %+v", board[0])
	}

	if got := len(engine.GlobalLeaderboard(1)); got != 1 {
		t.Fatalf("limited board size = %d, want 1", got)
	}
}

func TestAttemptHistoryRanksPastAttempts(t *testing.T) {
	ctx := context.Background()
	gateway := memory.NewGateway()
	engine := app.NewGamificationEngine(gateway, gateway, nil)
	engine.SetDispatch(func(f func()) { f() })
	engine.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	for _, rec := range []domain.ScoreRecord{
		{UserID: "u1", QuizID: "quiz-1", Score: 60, Accuracy: 60, TotalQuestions: 5, TimeSpentSeconds: 90},
		{UserID: "u1", QuizID: "quiz-2", Score: 95, Accuracy: 95, TotalQuestions: 5, TimeSpentSeconds: 45},
		{UserID: "u1", QuizID: "quiz-3", Score: 95, Accuracy: 95, TotalQuestions: 5, TimeSpentSeconds: 60},
	} {
		if err := gateway.SaveScoreRecord(ctx, rec); err != nil {
			t.Fatalf("save record: %v", err)
		}
	}
	if _, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
		QuizID: "quiz-4", Subject: "math", Score: 70, Accuracy: 70, TimeSpentSeconds: 30,
	}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	history, err := engine.AttemptHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history size = %d, want 3", len(history))
	}
	// Score descending, faster attempt wins the tie, ranks contiguous.
	if history[0].Score != 95 || history[0].TimeSpentSeconds != 45 || history[0].Rank != 1 {
		t.Fatalf("first entry = %+v", history[0])
	}
	if history[1].Score != 95 || history[1].TimeSpentSeconds != 60 || history[1].Rank != 2 {
		t.Fatalf("second entry = %+v", history[1])
	}
	if history[2].Score != 60 || history[2].Rank != 3 {
		t.Fatalf("third entry = %+v", history[2])
	}
	for _, entry := range history {
		if entry.DisplayName != "Alice" {
			t.Fatalf("display name = %q, want Alice", entry.DisplayName)
		}
	}
}

func TestAttemptHistoryForUnknownUser(t *testing.T) {
	history, err := newTestEngine(nil).AttemptHistory(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history = %d entries, want none", len(history))
	}
}

func TestSummaryForAbsentProfile(t *testing.T) {
	engine := newTestEngine(nil)

	summary, err := engine.SummaryFor(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Level != 1 || summary.NextLevelXP != 100 || summary.XP != 0 {
		t.Fatalf("zero summary = %+v", summary)
	}
}

func TestSummaryForSettledProfile(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(nil)
	engine.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	settlement, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
		QuizID: "quiz-1", Subject: "math", Score: 100, Accuracy: 100, TimeSpentSeconds: 60,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	summary, err := engine.SummaryFor(ctx, "u1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.XP != settlement.Profile.TotalXP {
		t.Fatalf("summary XP = %d, want %d", summary.XP, settlement.Profile.TotalXP)
	}
	if summary.Rank != 1 {
		t.Fatalf("summary rank = %d, want 1", summary.Rank)
	}
	if summary.Level != 2 || summary.CurrentLevelXP != 100 || summary.NextLevelXP != 200 {
		t.Fatalf("level progression = %+v", summary)
	}
	if len(summary.Badges) != 3 {
		t.Fatalf("summary badges = %d, want 3", len(summary.Badges))
	}
}
