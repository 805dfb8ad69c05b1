package model

import "time"

// MinConferenceTeamSize is the smallest team allowed to book a conference room.
const MinConferenceTeamSize = 3

type Team struct {
	ID        int64     `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Members   []int64   `json:"members" bson:"members" validate:"omitempty,dive,gt=0"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (t *Team) MemberCount() int {
	return len(t.Members)
}

type TeamMembersUpdate struct {
	Members []int64 `json:"members" validate:"required,min=1,dive,gt=0"`
}
