package domain

import "time"

// Event names on the wire. Inbound events are sent by clients, outbound
// events are emitted by the core to a room or a single connection.
const (
	EventJoinRoom     = "join-room"
	EventLeaveRoom    = "leave-room"
	EventSubmitAnswer = "submit-answer"
	EventCompleteQuiz = "complete-quiz"
	EventStartQuiz    = "start-quiz"
	EventEndQuiz      = "end-quiz"

	EventRoomJoined        = "room-joined"
	EventUserJoinedRoom    = "user-joined-room"
	EventRoomLeft          = "room-left"
	EventUserLeftRoom      = "user-left-room"
	EventAnswerSubmitted   = "answer-submitted"
	EventScoreUpdate       = "score-update"
	EventLeaderboardUpdate = "leaderboard-update"
	EventQuizCompleted     = "quiz-completed"
	EventQuizStarted       = "quiz-started"
	EventQuizEnded         = "quiz-ended"
	EventError             = "error"
)

// Each event payload is a distinct struct so the dispatcher can be
// checked statically instead of passing maps around.

type JoinRoomPayload struct {
	RoomID      string `json:"roomId"`
	QuizID      string `json:"quizId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type CompleteQuizPayload struct {
	RoomID           string            `json:"roomId"`
	QuizID           string            `json:"quizId"`
	Answers          []SubmittedAnswer `json:"answers"`
	TimeSpentSeconds int               `json:"timeSpentSeconds"`
}

// SubmittedAnswer is one entry of a completion's answer sheet.
type SubmittedAnswer struct {
	SelectedOption   int `json:"selectedOption"`
	TimeSpentSeconds int `json:"timeSpentSeconds"`
}

type QuizControlPayload struct {
	RoomID string `json:"roomId"`
	QuizID string `json:"quizId"`
}

type RoomJoinedPayload struct {
	Room        RoomSnapshot `json:"room"`
	Participant Participant  `json:"participant"`
}

type RoomLeftPayload struct {
	RoomID      string      `json:"roomId"`
	Participant Participant `json:"participant"`
}

type AnswerSubmittedPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	IsCorrect     bool `json:"isCorrect"`
	Score         int  `json:"score"`
}

type ScoreUpdatePayload struct {
	UserID           string `json:"userId"`
	DisplayName      string `json:"displayName"`
	QuestionIndex    int    `json:"questionIndex"`
	IsCorrect        bool   `json:"isCorrect"`
	CurrentScore     int    `json:"currentScore"`
	TotalAnswered    int    `json:"totalAnswered"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

type LeaderboardUpdatePayload struct {
	RoomID      string             `json:"roomId"`
	QuizID      string             `json:"quizId"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type QuizCompletedPayload struct {
	UserID           string            `json:"userId"`
	DisplayName      string            `json:"displayName"`
	FinalScore       int               `json:"finalScore"`
	Accuracy         float64           `json:"accuracy"`
	TotalQuestions   int               `json:"totalQuestions"`
	CorrectAnswers   int               `json:"correctAnswers"`
	TimeSpentSeconds int               `json:"timeSpentSeconds"`
	Rank             int               `json:"rank"`
	XP               XPBreakdown       `json:"xp"`
	NewBadges        []BadgeDefinition `json:"newBadges"`
}

type QuizStartedPayload struct {
	RoomID    string    `json:"roomId"`
	QuizID    string    `json:"quizId"`
	StartedAt time.Time `json:"startedAt"`
}

type QuizEndedPayload struct {
	RoomID  string    `json:"roomId"`
	QuizID  string    `json:"quizId"`
	EndedAt time.Time `json:"endedAt"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// XPBreakdown itemizes the XP earned for one completed attempt.
type XPBreakdown struct {
	BaseXP          int `json:"baseXP"`
	AccuracyBonus   int `json:"accuracyBonus"`
	TimeBonus       int `json:"timeBonus"`
	StreakBonus     int `json:"streakBonus"`
	CompletionBonus int `json:"completionBonus"`
	Total           int `json:"total"`
}
