package errors

import "errors"

var (
	ErrNotFound = errors.New("team not found")

	ErrUnknownMember = errors.New("team member does not exist")
)
