package masterdata

import "errors"

var (
	// ErrNotFound indicates the entity does not exist.
	ErrNotFound = errors.New("masterdata: not found")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("masterdata: already exists")
)
