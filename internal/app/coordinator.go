package app

import (
	"context"
	"fmt"
	"time"

	"quizlive-service/internal/domain"
)

// Broadcaster delivers room-scoped and connection-scoped events. The
// core decides what to broadcast and to whom; the transport owns the
// wire.
type Broadcaster interface {
	EmitToRoom(roomID, event string, payload any)
	EmitToConnection(connectionID, event string, payload any)
}

// Coordinator executes the client-facing operations: join, leave,
// submit, complete, start and end. It composes the registry, processor,
// calculator and engine, and pushes the resulting events through the
// broadcaster. Errors bubble to the transport, which reports them to
// the originating connection only.
type Coordinator struct {
	rooms   *RoomRegistry
	answers *AnswerProcessor
	engine  *GamificationEngine
	scores  ScoreGateway
	calc    LeaderboardCalculator
	bus     Broadcaster
	now     func() time.Time
}

func NewCoordinator(rooms *RoomRegistry, answers *AnswerProcessor, engine *GamificationEngine, scores ScoreGateway, bus Broadcaster) *Coordinator {
	return &Coordinator{
		rooms:   rooms,
		answers: answers,
		engine:  engine,
		scores:  scores,
		bus:     bus,
		now:     time.Now,
	}
}

// Engine exposes the gamification engine for query surfaces.
func (c *Coordinator) Engine() *GamificationEngine { return c.engine }

// Rooms exposes the registry for query surfaces.
func (c *Coordinator) Rooms() *RoomRegistry { return c.rooms }

// JoinRoom creates the room if needed, registers the participant and
// notifies both sides. The returned payload carries the final room id,
// which may have been synthesized; the transport subscribes the
// connection to it afterwards, so the joiner does not receive its own
// user-joined-room event.
func (c *Coordinator) JoinRoom(ctx context.Context, connectionID string, p domain.JoinRoomPayload) (domain.RoomJoinedPayload, error) {
	if p.UserID == "" {
		return domain.RoomJoinedPayload{}, domain.ErrUserNotIdentified
	}

	room, err := c.rooms.CreateOrGetRoom(ctx, p.QuizID, p.RoomID)
	if err != nil {
		return domain.RoomJoinedPayload{}, err
	}

	_, participant, err := c.rooms.Join(room.ID(), p.UserID, p.DisplayName, connectionID)
	if err != nil {
		return domain.RoomJoinedPayload{}, err
	}

	joined := domain.RoomJoinedPayload{
		Room:        room.Snapshot(),
		Participant: participant,
	}
	c.bus.EmitToRoom(room.ID(), domain.EventUserJoinedRoom, participant)
	c.bus.EmitToConnection(connectionID, domain.EventRoomJoined, joined)
	return joined, nil
}

// LeaveRoom removes the participant behind the connection.
func (c *Coordinator) LeaveRoom(connectionID string, p domain.LeaveRoomPayload) error {
	participant, left := c.rooms.Leave(p.RoomID, connectionID)
	if !left {
		return domain.ErrRoomNotFound
	}
	c.bus.EmitToConnection(connectionID, domain.EventRoomLeft, domain.RoomLeftPayload{
		RoomID:      p.RoomID,
		Participant: participant,
	})
	c.bus.EmitToRoom(p.RoomID, domain.EventUserLeftRoom, participant)
	return nil
}

// SubmitAnswer validates one answer, applies it to the participant's
// running state and refreshes the room leaderboard.
func (c *Coordinator) SubmitAnswer(ctx context.Context, connectionID, userID string, sub domain.AnswerSubmission) error {
	if userID == "" {
		return domain.ErrUserNotIdentified
	}
	room, ok := c.rooms.GetRoom(sub.RoomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	verdict, err := c.answers.Process(ctx, sub)
	if err != nil {
		return err
	}

	participant, verdict, err := room.RecordAnswer(userID, sub, verdict)
	if err != nil {
		return err
	}

	c.bus.EmitToConnection(connectionID, domain.EventAnswerSubmitted, domain.AnswerSubmittedPayload{
		QuestionIndex: sub.QuestionIndex,
		IsCorrect:     verdict.IsCorrect,
		Score:         participant.CurrentScore,
	})
	c.bus.EmitToRoom(sub.RoomID, domain.EventScoreUpdate, domain.ScoreUpdatePayload{
		UserID:           participant.UserID,
		DisplayName:      participant.DisplayName,
		QuestionIndex:    sub.QuestionIndex,
		IsCorrect:        verdict.IsCorrect,
		CurrentScore:     participant.CurrentScore,
		TotalAnswered:    participant.AnswersSubmitted,
		TimeSpentSeconds: sub.TimeSpentSeconds,
	})
	c.broadcastRoomLeaderboard(room)
	return nil
}

// CompleteQuiz grades the full answer sheet, persists the score record,
// settles gamification and announces completion to the room. A gateway
// failure here surfaces to the caller; the completion is never silently
// dropped.
func (c *Coordinator) CompleteQuiz(ctx context.Context, connectionID, userID string, p domain.CompleteQuizPayload) error {
	if userID == "" {
		return domain.ErrUserNotIdentified
	}
	room, ok := c.rooms.GetRoom(p.RoomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	record, err := c.answers.GradeAttempt(ctx, userID, p.QuizID, p.Answers, p.TimeSpentSeconds)
	if err != nil {
		return err
	}
	record.Timestamp = c.now()
	if err := c.scores.SaveScoreRecord(ctx, record); err != nil {
		return fmt.Errorf("%w: save score: %v", domain.ErrPersistenceFailure, err)
	}

	participant, _ := room.MarkCompleted(userID)
	if participant.UserID == "" {
		participant.UserID = userID
	}

	quiz, err := c.rooms.quizzes.GetQuiz(ctx, p.QuizID)
	if err != nil {
		return err
	}

	settlement, err := c.engine.SettleAttempt(ctx, userID, participant.DisplayName, Attempt{
		QuizID:           p.QuizID,
		Subject:          quiz.Subject,
		Score:            record.Score,
		Accuracy:         record.Accuracy,
		TimeSpentSeconds: record.TimeSpentSeconds,
	})
	if err != nil {
		return err
	}

	entries := c.calc.ComputeRoom(room.Snapshot())
	rank := 0
	for _, entry := range entries {
		if entry.UserID == userID {
			rank = entry.Rank
			break
		}
	}

	c.bus.EmitToRoom(p.RoomID, domain.EventQuizCompleted, domain.QuizCompletedPayload{
		UserID:           userID,
		DisplayName:      participant.DisplayName,
		FinalScore:       record.Score,
		Accuracy:         record.Accuracy,
		TotalQuestions:   record.TotalQuestions,
		CorrectAnswers:   record.CorrectAnswers,
		TimeSpentSeconds: record.TimeSpentSeconds,
		Rank:             rank,
		XP:               settlement.XP,
		NewBadges:        settlement.NewBadges,
	})
	c.bus.EmitToRoom(p.RoomID, domain.EventLeaderboardUpdate, domain.LeaderboardUpdatePayload{
		RoomID:      p.RoomID,
		QuizID:      p.QuizID,
		Leaderboard: entries,
		UpdatedAt:   c.now(),
	})
	return nil
}

// StartQuiz moves the room to Active. Hosts only.
func (c *Coordinator) StartQuiz(privileged bool, p domain.QuizControlPayload) error {
	if !privileged {
		return domain.ErrNotPrivileged
	}
	room, ok := c.rooms.GetRoom(p.RoomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Start()
	c.bus.EmitToRoom(p.RoomID, domain.EventQuizStarted, domain.QuizStartedPayload{
		RoomID:    p.RoomID,
		QuizID:    p.QuizID,
		StartedAt: c.now(),
	})
	return nil
}

// EndQuiz moves the room to Ended. Hosts only. In-flight submissions
// for the room are allowed to finish.
func (c *Coordinator) EndQuiz(privileged bool, p domain.QuizControlPayload) error {
	if !privileged {
		return domain.ErrNotPrivileged
	}
	room, ok := c.rooms.GetRoom(p.RoomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.End()
	c.bus.EmitToRoom(p.RoomID, domain.EventQuizEnded, domain.QuizEndedPayload{
		RoomID:  p.RoomID,
		QuizID:  p.QuizID,
		EndedAt: c.now(),
	})
	return nil
}

// HandleDisconnect sweeps every room the connection was part of and
// notifies those rooms.
func (c *Coordinator) HandleDisconnect(connectionID string) {
	for roomID, participant := range c.rooms.RemoveConnection(connectionID) {
		c.bus.EmitToRoom(roomID, domain.EventUserLeftRoom, participant)
	}
}

func (c *Coordinator) broadcastRoomLeaderboard(room *Room) {
	snap := room.Snapshot()
	c.bus.EmitToRoom(snap.RoomID, domain.EventLeaderboardUpdate, domain.LeaderboardUpdatePayload{
		RoomID:      snap.RoomID,
		QuizID:      snap.QuizID,
		Leaderboard: c.calc.ComputeRoom(snap),
		UpdatedAt:   c.now(),
	})
}
