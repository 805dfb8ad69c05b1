package model

import (
	"errors"
	"fmt"
)

var ErrRequesterMismatch = errors.New("requester does not match room type")

// Requester is the party a booking is made for: either a UserRequester or a
// TeamRequester.
type Requester interface {
	fmt.Stringer
	isRequester()
}

type UserRequester struct {
	UserID int64
}

type TeamRequester struct {
	TeamID int64
}

func (UserRequester) isRequester() {}
func (TeamRequester) isRequester() {}

func (r UserRequester) String() string { return fmt.Sprintf("user %d", r.UserID) }
func (r TeamRequester) String() string { return fmt.Sprintf("team %d", r.TeamID) }

// ResolveRequester picks the requester required by the room type from the
// optional ids of a request.
func ResolveRequester(roomType RoomType, userID, teamID *int64) (Requester, error) {
	if roomType.RequiresTeam() {
		if teamID == nil || *teamID <= 0 {
			return nil, ErrRequesterMismatch
		}
		return TeamRequester{TeamID: *teamID}, nil
	}
	if userID == nil || *userID <= 0 {
		return nil, ErrRequesterMismatch
	}
	return UserRequester{UserID: *userID}, nil
}
