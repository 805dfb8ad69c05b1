package validators

import "go.mongodb.org/mongo-driver/bson"

var roomTypes = []string{"PRIVATE", "CONFERENCE", "SHARED"}

var RoomValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "room_type", "capacity", "created_at"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},
			"room_type": bson.M{
				"bsonType": "string",
				"enum":     roomTypes,
			},
			"capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  1000,
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
