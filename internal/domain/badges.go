package domain

// BadgeType groups badges by what kind of achievement they mark.
type BadgeType string

const (
	BadgeStreak      BadgeType = "streak"
	BadgeAccuracy    BadgeType = "accuracy"
	BadgeCompletion  BadgeType = "completion"
	BadgeAchievement BadgeType = "achievement"
)

// BadgeCriterion compares one profile stat against a threshold.
type BadgeCriterion struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"` // gte, lte, gt, lt, eq
	Value    float64 `json:"value"`
}

// BadgeDefinition is a static, process-wide badge description.
type BadgeDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Icon        string         `json:"icon"`
	Type        BadgeType      `json:"type"`
	Criterion   BadgeCriterion `json:"criterion"`
}

// BadgeStats is the snapshot of profile fields badge criteria evaluate against.
type BadgeStats struct {
	TotalQuizzes        int
	CurrentStreak       int
	AverageAccuracy     float64
	PerfectScores       int
	TotalXP             int
	SubjectMasteryCount int
}

// BadgeDefinitions is the canonical badge table.
var BadgeDefinitions = []BadgeDefinition{
	{
		ID: "first_quiz", Name: "First Steps",
		Description: "Complete your first quiz", Icon: "🎯",
		Type:      BadgeCompletion,
		Criterion: BadgeCriterion{Field: "totalQuizzes", Operator: "gte", Value: 1},
	},
	{
		ID: "streak_7", Name: "Week Warrior",
		Description: "Maintain a 7-day learning streak", Icon: "🔥",
		Type:      BadgeStreak,
		Criterion: BadgeCriterion{Field: "currentStreak", Operator: "gte", Value: 7},
	},
	{
		ID: "streak_30", Name: "Month Master",
		Description: "Maintain a 30-day learning streak", Icon: "⚡",
		Type:      BadgeStreak,
		Criterion: BadgeCriterion{Field: "currentStreak", Operator: "gte", Value: 30},
	},
	{
		ID: "accuracy_90", Name: "Precision Pro",
		Description: "Achieve 90% accuracy average", Icon: "🎪",
		Type:      BadgeAccuracy,
		Criterion: BadgeCriterion{Field: "averageAccuracy", Operator: "gte", Value: 90},
	},
	{
		ID: "accuracy_100", Name: "Perfect Score",
		Description: "Score 100% on any quiz", Icon: "💯",
		Type:      BadgeAccuracy,
		Criterion: BadgeCriterion{Field: "perfectScores", Operator: "gte", Value: 1},
	},
	{
		ID: "quiz_10", Name: "Quiz Explorer",
		Description: "Complete 10 quizzes", Icon: "🧭",
		Type:      BadgeCompletion,
		Criterion: BadgeCriterion{Field: "totalQuizzes", Operator: "gte", Value: 10},
	},
	{
		ID: "quiz_50", Name: "Quiz Master",
		Description: "Complete 50 quizzes", Icon: "👑",
		Type:      BadgeCompletion,
		Criterion: BadgeCriterion{Field: "totalQuizzes", Operator: "gte", Value: 50},
	},
	{
		ID: "high_scorer", Name: "High Achiever",
		Description: "Reach 1000 XP", Icon: "🌟",
		Type:      BadgeAchievement,
		Criterion: BadgeCriterion{Field: "totalXP", Operator: "gte", Value: 1000},
	},
	{
		ID: "subject_master", Name: "Subject Expert",
		Description: "Score above 85% in any subject for 5 consecutive quizzes", Icon: "🎓",
		Type:      BadgeAchievement,
		Criterion: BadgeCriterion{Field: "subjectMastery", Operator: "gte", Value: 1},
	},
}

// BadgeByID looks a definition up in the static table.
func BadgeByID(id string) (BadgeDefinition, bool) {
	for _, def := range BadgeDefinitions {
		if def.ID == id {
			return def, true
		}
	}
	return BadgeDefinition{}, false
}

// Met evaluates the criterion against a stats snapshot. Unknown fields
// never satisfy a criterion.
func (c BadgeCriterion) Met(stats BadgeStats) bool {
	var v float64
	switch c.Field {
	case "totalQuizzes":
		v = float64(stats.TotalQuizzes)
	case "currentStreak":
		v = float64(stats.CurrentStreak)
	case "averageAccuracy":
		v = stats.AverageAccuracy
	case "perfectScores":
		v = float64(stats.PerfectScores)
	case "totalXP":
		v = float64(stats.TotalXP)
	case "subjectMastery":
		v = float64(stats.SubjectMasteryCount)
	default:
		return false
	}

	switch c.Operator {
	case "gte":
		return v >= c.Value
	case "lte":
		return v <= c.Value
	case "gt":
		return v > c.Value
	case "lt":
		return v < c.Value
	case "eq":
		return v == c.Value
	default:
		return false
	}
}
