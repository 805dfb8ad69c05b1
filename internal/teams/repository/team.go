package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	teamserrors "roombook/internal/teams/errors"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Teams"
	SequenceName   = "teams"
)

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id int64) (*model.Team, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Team, error)
	Count(ctx context.Context) (int64, error)
	AddMembers(ctx context.Context, id int64, members []int64) (*model.Team, error)
	// RemoveMember drops the user from every team it belongs to.
	RemoveMember(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoTeamRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	ids        mongotx.IDGenerator
	txManager  mongotx.TransactionManager
}

func NewMongoTeamRepository(cfg *config.Config) TeamRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTeamRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		ids:        mongotx.NewSequence(db),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoTeamRepository) Create(ctx context.Context, team *model.Team) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := r.ids.Next(ctx, SequenceName)
	if err != nil {
		return err
	}
	team.ID = id
	team.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if team.Members == nil {
		team.Members = []int64{}
	}

	if _, err := r.collection.InsertOne(ctx, team); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *mongoTeamRepository) FindByID(ctx context.Context, id int64) (*model.Team, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var team model.Team
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&team); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, teamserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return &team, nil
}

func (r *mongoTeamRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Team, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	teams := []*model.Team{}
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("failed to decode teams: %w", err)
	}
	return teams, nil
}

func (r *mongoTeamRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return count, nil
}

func (r *mongoTeamRepository) AddMembers(ctx context.Context, id int64, members []int64) (*model.Team, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var team model.Team
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"members": bson.M{"$each": members}}},
		opts,
	).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, teamserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to add team members: %w", err)
	}
	return &team, nil
}

func (r *mongoTeamRepository) RemoveMember(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"members": userID},
		bson.M{"$pull": bson.M{"members": userID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to remove member %d from teams: %w", userID, err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoTeamRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if result.DeletedCount == 0 {
		return teamserrors.ErrNotFound
	}
	return nil
}

func (r *mongoTeamRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
