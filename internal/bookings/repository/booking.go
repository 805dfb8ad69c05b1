package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
	SequenceName   = "bookings"
)

type BookingRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id int64) (*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) (*model.Booking, error)
	ExistsForUser(ctx context.Context, userID int64, date, slot string) (bool, error)
	ExistsForTeam(ctx context.Context, teamID int64, date, slot string) (bool, error)
	OccupancyBySlot(ctx context.Context, date, slot string) (map[int64]int, error)
	DeleteByRoom(ctx context.Context, roomID int64) (int64, error)
	ClearUser(ctx context.Context, userID int64) (int64, error)
	ClearTeam(ctx context.Context, teamID int64) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	ids        mongotx.IDGenerator
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		ids:        mongotx.NewSequence(db),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return r.ids.Next(ctx, SequenceName)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == 0 {
		id, err := r.ids.Next(ctx, SequenceName)
		if err != nil {
			return err
		}
		booking.ID = id
	}
	booking.Exclusive = !booking.RoomType.IsShared()
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", bookingserrors.ErrSlotTaken, err)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	bookings := []*model.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// Delete removes the booking and returns the removed document.
func (r *mongoBookingRepository) Delete(ctx context.Context, id int64) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) ExistsForUser(ctx context.Context, userID int64, date, slot string) (bool, error) {
	return r.exists(ctx, bson.M{"user_id": userID, "date": date, "slot": slot})
}

func (r *mongoBookingRepository) ExistsForTeam(ctx context.Context, teamID int64, date, slot string) (bool, error) {
	return r.exists(ctx, bson.M{"team_id": teamID, "date": date, "slot": slot})
}

func (r *mongoBookingRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check existing bookings: %w", err)
	}
	return count > 0, nil
}

type roomOccupancy struct {
	RoomID int64 `bson:"_id"`
	Count  int   `bson:"count"`
}

// OccupancyBySlot returns the number of bookings held per room on the given
// date and slot. Rooms without bookings are absent from the map.
func (r *mongoBookingRepository) OccupancyBySlot(ctx context.Context, date, slot string) (map[int64]int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date": date, "slot": slot}}},
		{{Key: "$group", Value: bson.M{"_id": "$room_id", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate occupancy: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var rows []roomOccupancy
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode occupancy: %w", err)
	}

	occupancy := make(map[int64]int, len(rows))
	for _, row := range rows {
		occupancy[row.RoomID] = row.Count
	}
	return occupancy, nil
}

func (r *mongoBookingRepository) DeleteByRoom(ctx context.Context, roomID int64) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookings of room %d: %w", roomID, err)
	}
	return result.DeletedCount, nil
}

// ClearUser detaches a deleted user from its bookings. The bookings stay and
// keep occupying their rooms.
func (r *mongoBookingRepository) ClearUser(ctx context.Context, userID int64) (int64, error) {
	return r.clearField(ctx, "user_id", userID)
}

func (r *mongoBookingRepository) ClearTeam(ctx context.Context, teamID int64) (int64, error) {
	return r.clearField(ctx, "team_id", teamID)
}

func (r *mongoBookingRepository) clearField(ctx context.Context, field string, id int64) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{field: id},
		bson.M{"$unset": bson.M{field: ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s %d from bookings: %w", field, id, err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
