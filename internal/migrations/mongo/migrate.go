package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "roombook/internal/bookings/repository"
	"roombook/internal/migrations/mongo/validators"
	roomsrepo "roombook/internal/rooms/repository"
	teamsrepo "roombook/internal/teams/repository"
	usersrepo "roombook/internal/users/repository"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/logger"
)

var (
	RoomsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_type", Value: 1}, {Key: "_id", Value: 1}}},
	}

	TeamsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "members", Value: 1}}},
	}

	// The partial unique indexes are the last line of defence against double
	// booking: one exclusive booking per room and one booking per requester
	// for each date and slot.
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "date", Value: 1}, {Key: "slot", Value: 1}},
			Options: options.Index().
				SetName("uniq_exclusive_room_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"exclusive": true}),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}, {Key: "slot", Value: 1}},
			Options: options.Index().
				SetName("uniq_user_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"user_id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "date", Value: 1}, {Key: "slot", Value: 1}},
			Options: options.Index().
				SetName("uniq_team_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"team_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "slot", Value: 1}, {Key: "room_id", Value: 1}}},
	}

	// Expired locks are reaped by Mongo. Acquisition also takes over expired
	// documents, so the reaper delay does not matter for correctness.
	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	}
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections returns the schema applied by RunMigration keyed by collection name.
func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		usersrepo.CollectionName: {
			Validator: validators.UserValidator,
		},
		teamsrepo.CollectionName: {
			Indexes:   TeamsIndexes,
			Validator: validators.TeamValidator,
		},
		roomsrepo.CollectionName: {
			Indexes:   RoomsIndexes,
			Validator: validators.RoomValidator,
		},
		bookingsrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		mongotx.LocksCollection: {
			Indexes:   BookingLocksIndexes,
			Validator: validators.BookingLockValidator,
		},
		mongotx.CountersCollection: {},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
