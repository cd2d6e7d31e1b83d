package domain

import "errors"

var (
	// ErrRoomNotFound is returned when an operation targets a room code with no live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrQuizAlreadyStarted rejects joining a room whose run is already underway.
	ErrQuizAlreadyStarted = errors.New("quiz already started")
	// ErrQuizNotFound indicates a catalogue quiz id that does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates an unknown catalogue user.
	ErrUserNotFound = errors.New("user not found")
	// ErrNameTaken rejects registering a display name that already exists.
	ErrNameTaken = errors.New("name already registered")
	// ErrForbidden is returned when someone other than the author edits,
	// deletes, or inspects results of a catalogue quiz.
	ErrForbidden = errors.New("only the quiz author may do that")
	// ErrAttemptNotFound indicates no recorded attempt for the quiz/user pair.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrInvalidInput wraps catalogue validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
