package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrSlotTaken is returned when an insert violates one of the booking
	// uniqueness indexes: the room, user or team is already booked for the slot.
	ErrSlotTaken = errors.New("booking slot already taken")
)
