package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// RobotRepository implements domain.RobotRepository
type RobotRepository struct {
	s          *Store
	collection *mongo.Collection
}

func (r *RobotRepository) Create(ctx context.Context, robot *domain.Robot) error {
	return r.s.insertOne(ctx, r.collection, robot)
}

func (r *RobotRepository) FindByID(ctx context.Context, robotID string) (*domain.Robot, error) {
	start := time.Now()
	var robot domain.Robot
	err := r.collection.FindOne(ctx, bson.M{"_id": robotID}).Decode(&robot)
	r.s.client.Observe(RobotsCollection, "findOne", start, ignoreNoDocuments(err))
	if err != nil {
		return nil, notFoundOr(err, "robot", robotID)
	}
	return &robot, nil
}

func (r *RobotRepository) Find(ctx context.Context, filter domain.RobotFilter) ([]*domain.Robot, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Zone != "" {
		query["assignedZone"] = filter.Zone
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count robots: %w", err)
	}

	start := time.Now()
	cursor, err := r.collection.Find(ctx, query, pageOptions(filter.Pagination).SetSort(bson.D{{Key: "_id", Value: 1}}))
	r.s.client.Observe(RobotsCollection, "find", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find robots: %w", err)
	}
	defer cursor.Close(ctx)

	robots := make([]*domain.Robot, 0)
	if err := cursor.All(ctx, &robots); err != nil {
		return nil, 0, err
	}
	return robots, total, nil
}

// CompareAndSwapStatus sets next only if the stored status equals expected
func (r *RobotRepository) CompareAndSwapStatus(ctx context.Context, robotID string, expected, next domain.RobotStatus, commandID string) (bool, error) {
	set := bson.M{"status": next, "updatedAt": time.Now().UTC()}
	update := bson.M{"$set": set}
	if commandID != "" {
		set["currentCommandId"] = commandID
	} else {
		update["$unset"] = bson.M{"currentCommandId": ""}
	}

	start := time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": robotID, "status": expected}, update)
	r.s.client.Observe(RobotsCollection, "updateOne", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to update robot %s: %w", robotID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	found, err := r.s.exists(ctx, r.collection, robotID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, &domain.NotFoundError{Resource: "robot", ID: robotID}
	}
	return false, nil
}

// ReleaseCommand clears the robot's reservation for commandID
func (r *RobotRepository) ReleaseCommand(ctx context.Context, robotID, commandID string, next domain.RobotStatus) (bool, error) {
	filter := bson.M{"_id": robotID, "status": domain.RobotStatusWorking, "currentCommandId": commandID}
	update := bson.M{
		"$set":   bson.M{"status": next, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"currentCommandId": ""},
	}

	start := time.Now()
	res, err := r.collection.UpdateOne(ctx, filter, update)
	r.s.client.Observe(RobotsCollection, "updateOne", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to release robot %s: %w", robotID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	found, err := r.s.exists(ctx, r.collection, robotID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, &domain.NotFoundError{Resource: "robot", ID: robotID}
	}
	return false, nil
}

func (r *RobotRepository) UpdateLocation(ctx context.Context, robotID string, location domain.Coordinate, binID string) error {
	start := time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": robotID}, bson.M{"$set": bson.M{
		"location":      location,
		"locationBinId": binID,
		"updatedAt":     time.Now().UTC(),
	}})
	r.s.client.Observe(RobotsCollection, "updateOne", start, err)
	if err != nil {
		return fmt.Errorf("failed to update robot location: %w", err)
	}
	if res.MatchedCount == 0 {
		return &domain.NotFoundError{Resource: "robot", ID: robotID}
	}
	return nil
}

// CommandRepository implements domain.CommandRepository
type CommandRepository struct {
	s          *Store
	collection *mongo.Collection
}

func (r *CommandRepository) Create(ctx context.Context, cmd *domain.Command) error {
	return r.s.insertOne(ctx, r.collection, cmd)
}

func (r *CommandRepository) FindByID(ctx context.Context, commandID string) (*domain.Command, error) {
	start := time.Now()
	var cmd domain.Command
	err := r.collection.FindOne(ctx, bson.M{"_id": commandID}).Decode(&cmd)
	r.s.client.Observe(CommandsCollection, "findOne", start, ignoreNoDocuments(err))
	if err != nil {
		return nil, notFoundOr(err, "command", commandID)
	}
	return &cmd, nil
}

func (r *CommandRepository) Find(ctx context.Context, filter domain.CommandFilter) ([]*domain.Command, int64, error) {
	query := bson.M{}
	if filter.RobotID != "" {
		query["robotId"] = filter.RobotID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count commands: %w", err)
	}

	start := time.Now()
	opts := pageOptions(filter.Pagination).SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	r.s.client.Observe(CommandsCollection, "find", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find commands: %w", err)
	}
	defer cursor.Close(ctx)

	commands := make([]*domain.Command, 0)
	if err := cursor.All(ctx, &commands); err != nil {
		return nil, 0, err
	}
	return commands, total, nil
}

// Update replaces the command only if the stored status equals expected
func (r *CommandRepository) Update(ctx context.Context, cmd *domain.Command, expected domain.CommandStatus) (bool, error) {
	start := time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": cmd.ID, "status": expected}, cmd)
	r.s.client.Observe(CommandsCollection, "replaceOne", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to update command %s: %w", cmd.ID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	found, err := r.s.exists(ctx, r.collection, cmd.ID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, &domain.NotFoundError{Resource: "command", ID: cmd.ID}
	}
	return false, nil
}

func (r *CommandRepository) Delete(ctx context.Context, commandID string) error {
	start := time.Now()
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": commandID})
	r.s.client.Observe(CommandsCollection, "deleteOne", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete command %s: %w", commandID, err)
	}
	if res.DeletedCount == 0 {
		return &domain.NotFoundError{Resource: "command", ID: commandID}
	}
	return nil
}

func (r *CommandRepository) FindExecutingSince(ctx context.Context, cutoff time.Time) ([]*domain.Command, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{
		"status":    domain.CommandStatusExecuting,
		"startedAt": bson.M{"$lt": cutoff},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find executing commands: %w", err)
	}
	defer cursor.Close(ctx)

	commands := make([]*domain.Command, 0)
	if err := cursor.All(ctx, &commands); err != nil {
		return nil, err
	}
	return commands, nil
}
