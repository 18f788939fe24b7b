package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quizlive-service/internal/domain"
)

// RoomStore abstracts how live rooms are held (in-memory, Redis-marked, etc).
type RoomStore interface {
	GetOrCreate(roomID, quizID, title string) *Room
	Get(roomID string) (*Room, bool)
	DeleteIfEmpty(roomID string)
	List() []*Room
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// RoomRegistry owns the lifecycle of active quiz rooms and their
// rosters. It is the unit of concurrency isolation: everything below it
// is guarded by the per-room mutex.
type RoomRegistry struct {
	store   RoomStore
	quizzes QuizRepository
	newID   func() string
}

func NewRoomRegistry(store RoomStore, quizzes QuizRepository) *RoomRegistry {
	return &RoomRegistry{
		store:   store,
		quizzes: quizzes,
		newID:   uuid.NewString,
	}
}

// CreateOrGetRoom returns the existing room when roomID is supplied and
// known, and otherwise creates an empty Forming room, synthesizing an
// id if none was given. Users cannot open rooms for unknown quizzes.
func (r *RoomRegistry) CreateOrGetRoom(ctx context.Context, quizID, roomID string) (*Room, error) {
	if roomID != "" {
		if room, ok := r.store.Get(roomID); ok {
			return room, nil
		}
	}

	quiz, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if roomID == "" {
		roomID = fmt.Sprintf("quiz-%s-%s", quizID, r.newID())
	}
	return r.store.GetOrCreate(roomID, quizID, quiz.Title), nil
}

// Join adds or refreshes a participant in an existing room.
func (r *RoomRegistry) Join(roomID, userID, displayName, connectionID string) (*Room, domain.Participant, error) {
	room, ok := r.store.Get(roomID)
	if !ok {
		return nil, domain.Participant{}, domain.ErrRoomNotFound
	}
	return room, room.Join(userID, displayName, connectionID), nil
}

// Leave removes the participant matching the connection and tears the
// room down if it became empty. Empty rooms are never retained.
func (r *RoomRegistry) Leave(roomID, connectionID string) (domain.Participant, bool) {
	room, ok := r.store.Get(roomID)
	if !ok {
		return domain.Participant{}, false
	}
	participant, left := room.LeaveByConnection(connectionID)
	if left && room.IsEmpty() {
		r.store.DeleteIfEmpty(roomID)
	}
	return participant, left
}

// GetRoom returns a live room by id.
func (r *RoomRegistry) GetRoom(roomID string) (*Room, bool) {
	return r.store.Get(roomID)
}

// ListRooms returns every live room.
func (r *RoomRegistry) ListRooms() []*Room {
	return r.store.List()
}

// RemoveConnection sweeps all rooms for a dropped connection and
// reports which rooms it left, so the transport can notify them.
func (r *RoomRegistry) RemoveConnection(connectionID string) map[string]domain.Participant {
	left := make(map[string]domain.Participant)
	for _, room := range r.store.List() {
		if participant, ok := room.LeaveByConnection(connectionID); ok {
			left[room.ID()] = participant
			if room.IsEmpty() {
				r.store.DeleteIfEmpty(room.ID())
			}
		}
	}
	return left
}
