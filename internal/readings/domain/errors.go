package readings

import "errors"

var (
	// ErrNotFound indicates the reading or goal does not exist.
	ErrNotFound = errors.New("readings: not found")
	// ErrAlreadyExists indicates a reading exists for the same
	// (tank, parameter, time) key.
	ErrAlreadyExists = errors.New("readings: already exists")
)
