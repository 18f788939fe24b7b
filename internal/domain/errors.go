package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room was never created or already torn down.
	ErrRoomNotFound = errors.New("quiz room not found")
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionOutOfRange indicates a submitted question index is outside the quiz.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrUserNotIdentified is returned when a connection carries no user identity.
	ErrUserNotIdentified = errors.New("user not identified")
	// ErrAnswerCountMismatch is returned when a completion sheet does not
	// have one answer per question.
	ErrAnswerCountMismatch = errors.New("answer count must match question count")
	// ErrParticipantNotFound is returned when a user acts in a room before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrNotPrivileged is returned when a non-host issues a start or end command.
	ErrNotPrivileged = errors.New("operation requires host role")
	// ErrPersistenceFailure wraps gateway failures during settlement.
	ErrPersistenceFailure = errors.New("persistence gateway failure")
	// ErrUnknownEvent is returned for an inbound event with no handler.
	ErrUnknownEvent = errors.New("unknown event type")
)

// ErrorCode maps an error to the wire-level code sent on the error event.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, ErrQuizNotFound):
		return "QUIZ_NOT_FOUND"
	case errors.Is(err, ErrQuestionOutOfRange):
		return "QUESTION_OUT_OF_RANGE"
	case errors.Is(err, ErrUserNotIdentified):
		return "USER_NOT_IDENTIFIED"
	case errors.Is(err, ErrAnswerCountMismatch):
		return "ANSWER_COUNT_MISMATCH"
	case errors.Is(err, ErrParticipantNotFound):
		return "PARTICIPANT_NOT_FOUND"
	case errors.Is(err, ErrNotPrivileged):
		return "NOT_PRIVILEGED"
	case errors.Is(err, ErrPersistenceFailure):
		return "PERSISTENCE_FAILURE"
	case errors.Is(err, ErrUnknownEvent):
		return "UNKNOWN_EVENT"
	default:
		return "INTERNAL"
	}
}
