package progression

import "errors"

var (
	// ErrInvalidArgument covers non-positive XP amounts and unknown identifiers.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownCheckpoint is returned when a checkpoint id is not part of the journey.
	ErrUnknownCheckpoint = wrapInvalid("unknown checkpoint")

	// ErrUnknownJourney is returned when a journey id does not exist.
	ErrUnknownJourney = wrapInvalid("unknown journey")

	// ErrPersistence wraps failures reported by the ProfileSaver.
	ErrPersistence = errors.New("persistence failure")

	// ErrConfigInvariant means the rank table is malformed. Fatal at startup.
	ErrConfigInvariant = errors.New("rank table invariant violated")
)

type invalidArgError struct{ msg string }

func wrapInvalid(msg string) error { return &invalidArgError{msg: msg} }

func (e *invalidArgError) Error() string { return e.msg }

func (e *invalidArgError) Unwrap() error { return ErrInvalidArgument }
