package model

import "time"

// BookingLock is an advisory lock document. Owner identifies the holder so a
// release never removes a lock that was taken over after expiry.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
