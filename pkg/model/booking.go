package model

import (
	"time"
)

type Booking struct {
	ID        int64     `json:"id" bson:"_id"`
	RoomID    int64     `json:"room" bson:"room_id"`
	RoomType  RoomType  `json:"room_type" bson:"room_type"`
	Exclusive bool      `json:"-" bson:"exclusive"`
	UserID    *int64    `json:"user" bson:"user_id,omitempty"`
	TeamID    *int64    `json:"team" bson:"team_id,omitempty"`
	Date      string    `json:"date" bson:"date"`
	Slot      string    `json:"slot" bson:"slot"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// BookingRequest carries the raw booking fields as received from a caller.
// Only the requester id matching RoomType is used.
type BookingRequest struct {
	RoomType string `json:"room_type" validate:"required,room_type"`
	Date     string `json:"date" validate:"required,isodate"`
	Slot     string `json:"slot" validate:"required,hhmm"`
	UserID   *int64 `json:"user,omitempty" validate:"omitempty,gt=0"`
	TeamID   *int64 `json:"team,omitempty" validate:"omitempty,gt=0"`
}

type BookingCreated struct {
	BookingID int64 `json:"booking_id"`
}
