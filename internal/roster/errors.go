package roster

import "errors"

// ErrInvalid is matched by every *ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid roster")

// ValidationError reports a roster that cannot be accepted for a write.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid roster: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
