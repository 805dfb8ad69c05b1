package model

import "time"

const ChildAgeThreshold = 10

type User struct {
	ID        int64     `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Age       int       `json:"age" bson:"age" validate:"gte=0,lte=150"`
	Gender    string    `json:"gender" bson:"gender" validate:"required,oneof=M F O"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (u *User) IsChild() bool {
	return u.Age < ChildAgeThreshold
}
