package model

import "time"

type RoomType string

const (
	RoomTypePrivate    RoomType = "PRIVATE"
	RoomTypeConference RoomType = "CONFERENCE"
	RoomTypeShared     RoomType = "SHARED"
)

// RoomTypes lists the bookable room types in display order.
var RoomTypes = []RoomType{RoomTypePrivate, RoomTypeConference, RoomTypeShared}

func ParseRoomType(s string) (RoomType, bool) {
	for _, rt := range RoomTypes {
		if string(rt) == s {
			return rt, true
		}
	}
	return "", false
}

func (t RoomType) Valid() bool {
	_, ok := ParseRoomType(string(t))
	return ok
}

// IsShared reports whether occupancy is counted against the room capacity
// instead of being binary.
func (t RoomType) IsShared() bool {
	return t == RoomTypeShared
}

// RequiresTeam reports whether bookings of this type are requested by a team.
func (t RoomType) RequiresTeam() bool {
	return t == RoomTypeConference
}

type Room struct {
	ID        int64     `json:"id" bson:"_id"`
	RoomType  RoomType  `json:"room_type" bson:"room_type" validate:"required,room_type"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=1000"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// HasRoomFor reports whether the room accepts one more booking given the
// number of bookings already held on the same date and slot.
func (r *Room) HasRoomFor(booked int) bool {
	if r.RoomType.IsShared() {
		return booked < r.Capacity
	}
	return booked == 0
}
