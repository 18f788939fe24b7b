package app

import (
	"sync"
	"time"

	"quizlive-service/internal/domain"
)

// Room is the in-memory state of one live quiz session. All roster and
// score mutations happen under the room's own mutex, so concurrent
// submissions to the same room never race.
type Room struct {
	id     string
	quizID string
	title  string
	now    func() time.Time

	mu           sync.Mutex
	state        domain.RoomState
	startedAt    time.Time
	endedAt      *time.Time
	participants map[string]*roomParticipant
}

type roomParticipant struct {
	domain.Participant
	answered map[int]bool
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
func NewRoom(id, quizID, title string) *Room {
	return NewRoomWithClock(id, quizID, title, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(id, quizID, title string, now func() time.Time) *Room {
	return &Room{
		id:           id,
		quizID:       quizID,
		title:        title,
		now:          now,
		state:        domain.RoomForming,
		startedAt:    now(),
		participants: make(map[string]*roomParticipant),
	}
}

func (r *Room) ID() string     { return r.id }
func (r *Room) QuizID() string { return r.quizID }

// Join adds a participant or, for a rejoin with the same user ID,
// refreshes the connection in place so the roster never duplicates.
func (r *Room) Join(userID, displayName, connectionID string) domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.participants[userID]; ok {
		p.DisplayName = displayName
		p.ConnectionID = connectionID
		return p.Participant
	}

	p := &roomParticipant{
		Participant: domain.Participant{
			UserID:       userID,
			DisplayName:  displayName,
			ConnectionID: connectionID,
			JoinedAt:     r.now(),
		},
		answered: make(map[int]bool),
	}
	r.participants[userID] = p
	return p.Participant
}

// LeaveByConnection removes the participant holding the connection.
func (r *Room) LeaveByConnection(connectionID string) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, p := range r.participants {
		if p.ConnectionID == connectionID {
			delete(r.participants, userID)
			return p.Participant, true
		}
	}
	return domain.Participant{}, false
}

// RecordAnswer applies a verdict to the participant's running state.
// The first submission per question index is the one that scores; a
// repeat keeps its correctness verdict but carries a zero delta and
// does not advance AnswersSubmitted.
func (r *Room) RecordAnswer(userID string, sub domain.AnswerSubmission, verdict domain.AnswerVerdict) (domain.Participant, domain.AnswerVerdict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		return domain.Participant{}, domain.AnswerVerdict{}, domain.ErrParticipantNotFound
	}

	if p.answered[sub.QuestionIndex] {
		verdict.Duplicate = true
		verdict.ScoreDelta = 0
		return p.Participant, verdict, nil
	}
	p.answered[sub.QuestionIndex] = true

	p.AnswersSubmitted++
	p.TimeSpentSeconds += sub.TimeSpentSeconds
	if verdict.IsCorrect {
		p.CorrectAnswers++
		p.CurrentScore += verdict.ScoreDelta
	}
	return p.Participant, verdict, nil
}

// MarkCompleted flags the participant as done with the quiz.
func (r *Room) MarkCompleted(userID string) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		return domain.Participant{}, false
	}
	p.IsCompleted = true
	return p.Participant, true
}

// Start moves the room to Active. Starting an already started or ended
// room is a no-op.
func (r *Room) Start() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == domain.RoomForming {
		r.state = domain.RoomActive
		r.startedAt = r.now()
	}
	return r.state
}

// End moves the room to Ended. Ending twice is a no-op. In-flight
// answer processing is not cancelled; its effects are simply ignored by
// anything reading room state afterwards.
func (r *Room) End() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.RoomEnded {
		r.state = domain.RoomEnded
		ended := r.now()
		r.endedAt = &ended
	}
	return r.state
}

// IsEmpty reports whether the room has no participants.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants) == 0
}

// Snapshot copies the room state for broadcasting and leaderboard work.
func (r *Room) Snapshot() domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, p.Participant)
	}
	return domain.RoomSnapshot{
		RoomID:       r.id,
		QuizID:       r.quizID,
		Title:        r.title,
		State:        r.state,
		Participants: participants,
		StartedAt:    r.startedAt,
		EndedAt:      r.endedAt,
	}
}
