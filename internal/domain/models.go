package domain

import "time"

// RoomState is the lifecycle state of a quiz room.
type RoomState string

const (
	RoomForming RoomState = "forming"
	RoomActive  RoomState = "active"
	RoomEnded   RoomState = "ended"
)

// Participant is a user's live presence inside one room.
type Participant struct {
	UserID           string    `json:"userId"`
	DisplayName      string    `json:"displayName"`
	ConnectionID     string    `json:"connectionId"`
	JoinedAt         time.Time `json:"joinedAt"`
	CurrentScore     int       `json:"currentScore"`
	AnswersSubmitted int       `json:"answersSubmitted"`
	CorrectAnswers   int       `json:"correctAnswers"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	IsCompleted      bool      `json:"isCompleted"`
}

// RoomSnapshot is a copy-safe view of a room for broadcasting.
type RoomSnapshot struct {
	RoomID       string        `json:"roomId"`
	QuizID       string        `json:"quizId"`
	Title        string        `json:"title"`
	State        RoomState     `json:"state"`
	Participants []Participant `json:"participants"`
	StartedAt    time.Time     `json:"startedAt"`
	EndedAt      *time.Time    `json:"endedAt,omitempty"`
}

// AnswerSubmission is the scoring signal for one question. Consumed once,
// never persisted by the core.
type AnswerSubmission struct {
	RoomID           string `json:"roomId"`
	QuizID           string `json:"quizId"`
	QuestionIndex    int    `json:"questionIndex"`
	SelectedOption   int    `json:"selectedOption"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

// AnswerVerdict is the outcome of processing one submission.
type AnswerVerdict struct {
	IsCorrect  bool `json:"isCorrect"`
	ScoreDelta int  `json:"scoreDelta"`
	Duplicate  bool `json:"duplicate"`
}

// RecordedAnswer is one answer within a completed attempt.
type RecordedAnswer struct {
	QuestionIndex    int  `json:"questionIndex"`
	SelectedOption   int  `json:"selectedOption"`
	IsCorrect        bool `json:"isCorrect"`
	TimeSpentSeconds int  `json:"timeSpentSeconds"`
}

// ScoreRecord is one completed attempt. Immutable after creation.
type ScoreRecord struct {
	UserID           string           `json:"userId"`
	QuizID           string           `json:"quizId"`
	Score            int              `json:"score"`
	Accuracy         float64          `json:"accuracy"`
	TotalQuestions   int              `json:"totalQuestions"`
	CorrectAnswers   int              `json:"correctAnswers"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
	Answers          []RecordedAnswer `json:"answers"`
	Timestamp        time.Time        `json:"timestamp"`
}

// LeaderboardEntry is a ranked projection of one user's standing.
// Entries are recomputed from scratch, never mutated in place.
type LeaderboardEntry struct {
	UserID           string  `json:"userId"`
	DisplayName      string  `json:"displayName"`
	Score            int     `json:"score"`
	TotalXP          int     `json:"totalXP"`
	Accuracy         float64 `json:"accuracy"`
	AverageScore     float64 `json:"averageScore"`
	TotalAnswered    int     `json:"totalAnswered"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
	Level            int     `json:"level"`
	BadgeCount       int     `json:"badgeCount"`
	Rank             int     `json:"rank"`
}

// SubjectStat tracks a user's history within one subject.
type SubjectStat struct {
	TotalQuizzes          int     `json:"totalQuizzes"`
	AverageScore          float64 `json:"averageScore"`
	ConsecutiveHighScores int     `json:"consecutiveHighScores"`
}

// UserBadge marks a badge as earned; appended at most once per badge ID.
type UserBadge struct {
	BadgeID  string    `json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`
}

// UserGamificationProfile is the durable per-user aggregate of XP,
// streaks, accuracy and badges. Mutated only by the gamification engine.
// AccuracySum carries the running numerator for AverageAccuracy so the
// mean stays identical to summing every historical record in order.
type UserGamificationProfile struct {
	UserID              string                 `json:"userId"`
	DisplayName         string                 `json:"displayName"`
	Role                string                 `json:"role"`
	TotalXP             int                    `json:"totalXP"`
	CurrentStreak       int                    `json:"currentStreak"`
	MaxStreak           int                    `json:"maxStreak"`
	TotalQuizzes        int                    `json:"totalQuizzes"`
	AccuracySum         float64                `json:"accuracySum"`
	AverageAccuracy     float64                `json:"averageAccuracy"`
	PerfectScores       int                    `json:"perfectScores"`
	LastActivityDate    time.Time              `json:"lastActivityDate"`
	SubjectStats        map[string]SubjectStat `json:"subjectStats"`
	SubjectMasteryCount int                    `json:"subjectMasteryCount"`
	Badges              []UserBadge            `json:"badges"`
}

// HasBadge reports whether the badge was already earned.
func (p *UserGamificationProfile) HasBadge(badgeID string) bool {
	for _, b := range p.Badges {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

// ProfileSummary is the slice of a profile published to the identity
// directory after each settlement.
type ProfileSummary struct {
	Role            string  `json:"role"`
	TotalXP         int     `json:"totalXP"`
	CurrentStreak   int     `json:"currentStreak"`
	MaxStreak       int     `json:"maxStreak"`
	TotalQuizzes    int     `json:"totalQuizzes"`
	AverageAccuracy float64 `json:"averageAccuracy"`
	BadgeCount      int     `json:"badgeCount"`
	Level           int     `json:"level"`
}

// Question models an MCQ question; CorrectIndex points into Options.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Quiz is the canonical quiz definition owned by the persistence gateway.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Subject   string     `json:"subject"`
	Questions []Question `json:"questions"`
}

// Level derives the level from total XP: every 100 XP is one level,
// starting at level 1.
func Level(totalXP int) int {
	return totalXP/100 + 1
}

// NextLevelXP is the XP threshold for the next level.
func NextLevelXP(totalXP int) int {
	return Level(totalXP) * 100
}

// CurrentLevelXP is the XP floor of the current level.
func CurrentLevelXP(totalXP int) int {
	return (Level(totalXP) - 1) * 100
}
