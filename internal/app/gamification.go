package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"quizlive-service/internal/domain"
)

// ProfileGateway stores gamification profiles. GetUser returns (nil, nil)
// for a user with no profile yet.
type ProfileGateway interface {
	GetUser(ctx context.Context, userID string) (*domain.UserGamificationProfile, error)
	SaveUser(ctx context.Context, profile *domain.UserGamificationProfile) error
}

// ScoreGateway stores completed attempts.
type ScoreGateway interface {
	FindScoreRecords(ctx context.Context, userID string) ([]domain.ScoreRecord, error)
	SaveScoreRecord(ctx context.Context, record domain.ScoreRecord) error
}

// IdentitySync publishes a profile summary to an external identity
// directory. Best effort: failures are logged and swallowed.
type IdentitySync interface {
	PublishProfileSummary(ctx context.Context, userID string, summary domain.ProfileSummary) error
}

// Attempt is one completed quiz attempt as seen by the engine.
type Attempt struct {
	QuizID           string
	Subject          string
	Score            int
	Accuracy         float64
	TimeSpentSeconds int
}

// Settlement is the result of settling one attempt.
type Settlement struct {
	XP        domain.XPBreakdown
	NewBadges []domain.BadgeDefinition
	Profile   domain.UserGamificationProfile
	Rank      int
}

// GamificationEngine owns the irreversible transition from "attempt
// completed" to "profile updated": streaks, XP, subject mastery, badge
// awards, identity sync and the global leaderboard projection. One
// mutex serializes settlements across all rooms; rank assignment stays
// consistent at the cost of throughput under concurrent completions.
type GamificationEngine struct {
	profiles ProfileGateway
	scores   ScoreGateway
	idsync   IdentitySync
	calc     LeaderboardCalculator
	now      func() time.Time
	dispatch func(func())

	mu     sync.Mutex
	board  map[string]domain.LeaderboardEntry
	ranked []domain.LeaderboardEntry
}

func NewGamificationEngine(profiles ProfileGateway, scores ScoreGateway, idsync IdentitySync) *GamificationEngine {
	return &GamificationEngine{
		profiles: profiles,
		scores:   scores,
		idsync:   idsync,
		now:      time.Now,
		dispatch: func(f func()) { go f() },
		board:    make(map[string]domain.LeaderboardEntry),
	}
}

// SetClock is test-only for deterministic streak math.
func (e *GamificationEngine) SetClock(now func() time.Time) { e.now = now }

// SetDispatch is test-only; it makes identity sync synchronous.
func (e *GamificationEngine) SetDispatch(dispatch func(func())) { e.dispatch = dispatch }

// CalculateXP itemizes the XP for one completion given the streak that
// settlement established.
func CalculateXP(score int, accuracy float64, timeSpentSeconds, currentStreak int) domain.XPBreakdown {
	baseXP := score
	accuracyBonus := int(math.Round(accuracy / 100 * 50))
	timeBonus := 25 - int(math.Round(float64(timeSpentSeconds)/60))
	if timeBonus < 0 {
		timeBonus = 0
	}
	streakBonus := currentStreak * 5
	if streakBonus > 100 {
		streakBonus = 100
	}
	const completionBonus = 10

	return domain.XPBreakdown{
		BaseXP:          baseXP,
		AccuracyBonus:   accuracyBonus,
		TimeBonus:       timeBonus,
		StreakBonus:     streakBonus,
		CompletionBonus: completionBonus,
		Total:           baseXP + accuracyBonus + timeBonus + streakBonus + completionBonus,
	}
}

// SettleAttempt runs the full settlement against one profile, creating
// it on the first attempt. Persistence failures surface to the caller;
// identity sync failures never do.
func (e *GamificationEngine) SettleAttempt(ctx context.Context, userID, displayName string, att Attempt) (Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.profiles.GetUser(ctx, userID)
	if err != nil {
		return Settlement{}, fmt.Errorf("%w: load profile: %v", domain.ErrPersistenceFailure, err)
	}
	if profile == nil {
		profile = &domain.UserGamificationProfile{
			UserID:       userID,
			DisplayName:  displayName,
			Role:         "student",
			SubjectStats: make(map[string]domain.SubjectStat),
		}
	}
	if displayName != "" {
		profile.DisplayName = displayName
	}
	if profile.SubjectStats == nil {
		profile.SubjectStats = make(map[string]domain.SubjectStat)
	}

	now := e.now()

	// Streak update at day granularity.
	profile.CurrentStreak = nextStreak(profile.CurrentStreak, profile.LastActivityDate, now)
	if profile.CurrentStreak > profile.MaxStreak {
		profile.MaxStreak = profile.CurrentStreak
	}
	profile.LastActivityDate = now

	xp := CalculateXP(att.Score, att.Accuracy, att.TimeSpentSeconds, profile.CurrentStreak)
	profile.TotalXP += xp.Total
	profile.TotalQuizzes++

	if att.Accuracy == 100 {
		profile.PerfectScores++
	}

	// Running average accuracy. The sum accumulates one attempt at a
	// time in arrival order, so the quotient matches rescanning every
	// historical record under the same float semantics.
	if profile.AccuracySum == 0 && profile.TotalQuizzes > 1 {
		if err := e.rebuildAccuracySum(ctx, profile); err != nil {
			return Settlement{}, err
		}
	}
	profile.AccuracySum += att.Accuracy
	profile.AverageAccuracy = profile.AccuracySum / float64(profile.TotalQuizzes)

	// Subject mastery. The mastery counter is monotonic: it bumps on
	// every settlement where the consecutive-high run is at 5 or more
	// and is never taken back.
	stats := profile.SubjectStats[att.Subject]
	stats.TotalQuizzes++
	stats.AverageScore = (stats.AverageScore*float64(stats.TotalQuizzes-1) + float64(att.Score)) / float64(stats.TotalQuizzes)
	if att.Score >= 85 {
		stats.ConsecutiveHighScores++
	} else {
		stats.ConsecutiveHighScores = 0
	}
	profile.SubjectStats[att.Subject] = stats
	if stats.ConsecutiveHighScores >= 5 {
		profile.SubjectMasteryCount++
	}

	newBadges := e.awardBadges(profile, now)

	if err := e.profiles.SaveUser(ctx, profile); err != nil {
		return Settlement{}, fmt.Errorf("%w: save profile: %v", domain.ErrPersistenceFailure, err)
	}

	e.publishSummary(userID, summarize(profile))

	entry := e.upsertEntryLocked(profile)

	return Settlement{
		XP:        xp,
		NewBadges: newBadges,
		Profile:   *profile,
		Rank:      entry.Rank,
	}, nil
}

func nextStreak(current int, lastActivity, now time.Time) int {
	if lastActivity.IsZero() {
		return 1
	}
	days := int(truncateDay(now).Sub(truncateDay(lastActivity)).Hours() / 24)
	switch {
	case days == 0:
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// rebuildAccuracySum recovers the running sum for profiles persisted
// before the sum existed, reading history the way the settlement
// originally did. Only attempts prior to the one being settled count:
// its score record is already persisted by the time settlement runs,
// and the caller adds the current accuracy afterwards. A zero sum is
// also a legitimate state (every prior attempt at 0%), which this
// rescan reproduces rather than corrupts.
func (e *GamificationEngine) rebuildAccuracySum(ctx context.Context, profile *domain.UserGamificationProfile) error {
	records, err := e.scores.FindScoreRecords(ctx, profile.UserID)
	if err != nil {
		return fmt.Errorf("%w: load score history: %v", domain.ErrPersistenceFailure, err)
	}
	prior := profile.TotalQuizzes - 1
	if len(records) > prior {
		records = records[:prior]
	}
	var sum float64
	for _, rec := range records {
		sum += rec.Accuracy
	}
	profile.AccuracySum = sum
	return nil
}

// awardBadges appends every not-yet-earned badge whose criterion the
// updated profile satisfies. A badge already present is never
// re-evaluated, which makes awards idempotent.
func (e *GamificationEngine) awardBadges(profile *domain.UserGamificationProfile, now time.Time) []domain.BadgeDefinition {
	stats := domain.BadgeStats{
		TotalQuizzes:        profile.TotalQuizzes,
		CurrentStreak:       profile.CurrentStreak,
		AverageAccuracy:     profile.AverageAccuracy,
		PerfectScores:       profile.PerfectScores,
		TotalXP:             profile.TotalXP,
		SubjectMasteryCount: profile.SubjectMasteryCount,
	}

	var earned []domain.BadgeDefinition
	for _, def := range domain.BadgeDefinitions {
		if profile.HasBadge(def.ID) {
			continue
		}
		if def.Criterion.Met(stats) {
			profile.Badges = append(profile.Badges, domain.UserBadge{BadgeID: def.ID, EarnedAt: now})
			earned = append(earned, def)
		}
	}
	return earned
}

func summarize(profile *domain.UserGamificationProfile) domain.ProfileSummary {
	return domain.ProfileSummary{
		Role:            profile.Role,
		TotalXP:         profile.TotalXP,
		CurrentStreak:   profile.CurrentStreak,
		MaxStreak:       profile.MaxStreak,
		TotalQuizzes:    profile.TotalQuizzes,
		AverageAccuracy: profile.AverageAccuracy,
		BadgeCount:      len(profile.Badges),
		Level:           domain.Level(profile.TotalXP),
	}
}

// publishSummary is fire-and-forget: it runs off the settlement path
// and its failure must never abort or delay the caller.
func (e *GamificationEngine) publishSummary(userID string, summary domain.ProfileSummary) {
	if e.idsync == nil {
		return
	}
	e.dispatch(func() {
		if err := e.idsync.PublishProfileSummary(context.Background(), userID, summary); err != nil {
			log.Printf("identity sync for %s failed: %v", userID, err)
		}
	})
}

// upsertEntryLocked projects the profile onto the global board and
// re-ranks everything. Callers hold e.mu.
func (e *GamificationEngine) upsertEntryLocked(profile *domain.UserGamificationProfile) domain.LeaderboardEntry {
	e.board[profile.UserID] = domain.LeaderboardEntry{
		UserID:        profile.UserID,
		DisplayName:   profile.DisplayName,
		Score:         profile.TotalXP + profile.CurrentStreak*10,
		TotalXP:       profile.TotalXP,
		AverageScore:  profile.AverageAccuracy,
		TotalAnswered: profile.TotalQuizzes,
		Level:         domain.Level(profile.TotalXP),
		BadgeCount:    len(profile.Badges),
	}

	flat := make([]domain.LeaderboardEntry, 0, len(e.board))
	for _, entry := range e.board {
		flat = append(flat, entry)
	}
	e.ranked = e.calc.ComputeGlobal(flat)

	for _, entry := range e.ranked {
		if entry.UserID == profile.UserID {
			return entry
		}
	}
	return domain.LeaderboardEntry{}
}

// AttemptHistory ranks a user's persisted attempts against each other,
// best first, so clients can show personal standings over time.
func (e *GamificationEngine) AttemptHistory(ctx context.Context, userID string) ([]domain.LeaderboardEntry, error) {
	records, err := e.scores.FindScoreRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load score history: %v", domain.ErrPersistenceFailure, err)
	}

	names := make(map[string]string, 1)
	if profile, err := e.profiles.GetUser(ctx, userID); err == nil && profile != nil {
		names[userID] = profile.DisplayName
	}
	return e.calc.ComputeHistorical(records, names), nil
}

// GlobalLeaderboard returns the top entries of the last recomputation.
func (e *GamificationEngine) GlobalLeaderboard(limit int) []domain.LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.ranked)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.LeaderboardEntry, n)
	copy(out, e.ranked[:n])
	return out
}

// EarnedBadge pairs a definition with when the user earned it.
type EarnedBadge struct {
	Badge    domain.BadgeDefinition `json:"badge"`
	EarnedAt time.Time              `json:"earnedAt"`
}

// Summary is the per-user gamification readout: XP, streak, badges with
// definitions, global rank and level progression.
type Summary struct {
	XP             int           `json:"xp"`
	Streak         int           `json:"streak"`
	Badges         []EarnedBadge `json:"badges"`
	Rank           int           `json:"rank"`
	Level          int           `json:"level"`
	NextLevelXP    int           `json:"nextLevelXP"`
	CurrentLevelXP int           `json:"currentLevelXP"`
}

// SummaryFor builds the summary for one user. Users without a profile
// get the level-1 zero summary.
func (e *GamificationEngine) SummaryFor(ctx context.Context, userID string) (Summary, error) {
	profile, err := e.profiles.GetUser(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: load profile: %v", domain.ErrPersistenceFailure, err)
	}
	if profile == nil {
		return Summary{Level: 1, NextLevelXP: 100}, nil
	}

	badges := make([]EarnedBadge, 0, len(profile.Badges))
	for _, b := range profile.Badges {
		if def, ok := domain.BadgeByID(b.BadgeID); ok {
			badges = append(badges, EarnedBadge{Badge: def, EarnedAt: b.EarnedAt})
		}
	}

	rank := 0
	e.mu.Lock()
	for _, entry := range e.ranked {
		if entry.UserID == userID {
			rank = entry.Rank
			break
		}
	}
	e.mu.Unlock()

	return Summary{
		XP:             profile.TotalXP,
		Streak:         profile.CurrentStreak,
		Badges:         badges,
		Rank:           rank,
		Level:          domain.Level(profile.TotalXP),
		NextLevelXP:    domain.NextLevelXP(profile.TotalXP),
		CurrentLevelXP: domain.CurrentLevelXP(profile.TotalXP),
	}, nil
}
