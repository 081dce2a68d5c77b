// Package mongodb implements the domain repositories on MongoDB. Conditional
// updates carry the capacity, stock, and status guards so concurrent writers
// cannot overdraw a bin or double-book a robot.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/asrs-service/internal/domain"
	mongopkg "github.com/wms-platform/asrs-service/pkg/mongodb"
	outboxMongo "github.com/wms-platform/asrs-service/pkg/outbox/mongodb"
)

// Collection names
const (
	ZonesCollection     = "zones"
	AislesCollection    = "aisles"
	RacksCollection     = "racks"
	BinsCollection      = "bins"
	ItemsCollection     = "items"
	StockCollection     = "stock_units"
	MovementsCollection = "movement_records"
	PlansCollection     = "fulfillment_plans"
	RobotsCollection    = "robots"
	CommandsCollection  = "robot_commands"
	ShipmentsCollection = "shipments"
)

type txKey struct{}

// Store groups the repositories that share one database
type Store struct {
	client *mongopkg.Client
	db     *mongo.Database
	outbox *outboxMongo.OutboxRepository
}

// NewStore creates a Store over an open client
func NewStore(client *mongopkg.Client) *Store {
	return &Store{
		client: client,
		db:     client.Database(),
		outbox: outboxMongo.NewOutboxRepository(client.Database()),
	}
}

// WithinTransaction implements domain.Transactor. Nested calls join the
// outer session.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx, _ := ctx.Value(txKey{}).(bool); inTx {
		return fn(ctx)
	}
	return s.client.WithTransaction(ctx, func(sessCtx context.Context) error {
		return fn(context.WithValue(sessCtx, txKey{}, true))
	})
}

// EnsureIndexes creates the lookup and uniqueness indexes of every collection
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		AislesCollection: {{Keys: bson.D{{Key: "zoneId", Value: 1}}}},
		RacksCollection:  {{Keys: bson.D{{Key: "aisleId", Value: 1}}}},
		BinsCollection: {
			{Keys: bson.D{{Key: "barcode", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "locationCode", Value: 1}}},
		},
		ItemsCollection: {
			{Keys: bson.D{{Key: "sku", Value: 1}}},
			{Keys: bson.D{{Key: "barcode", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		StockCollection: {
			{Keys: bson.D{{Key: "binId", Value: 1}, {Key: "itemId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "quantity", Value: 1}}},
		},
		MovementsCollection: {
			{Keys: bson.D{{Key: "planId", Value: 1}, {Key: "sequence", Value: 1}}},
			{Keys: bson.D{{Key: "itemId", Value: 1}}},
			{Keys: bson.D{{Key: "sourceBinId", Value: 1}}},
		},
		RobotsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "assignedZone", Value: 1}}},
		},
		CommandsCollection: {
			{Keys: bson.D{{Key: "robotId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "startedAt", Value: 1}}},
		},
		ShipmentsCollection: {
			{Keys: bson.D{{Key: "barcode", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return s.outbox.EnsureIndexes(ctx)
}

// Layout returns the layout repository
func (s *Store) Layout() *LayoutRepository { return newLayoutRepository(s) }

// Items returns the item repository
func (s *Store) Items() *ItemRepository {
	return &ItemRepository{s: s, collection: s.db.Collection(ItemsCollection)}
}

// Stock returns the stock repository
func (s *Store) Stock() *StockRepository {
	return &StockRepository{s: s, collection: s.db.Collection(StockCollection)}
}

// Movements returns the movement log
func (s *Store) Movements() *MovementRepository {
	return &MovementRepository{s: s, collection: s.db.Collection(MovementsCollection)}
}

// Plans returns the plan repository
func (s *Store) Plans() *PlanRepository {
	return &PlanRepository{s: s, collection: s.db.Collection(PlansCollection)}
}

// Robots returns the robot registry
func (s *Store) Robots() *RobotRepository {
	return &RobotRepository{s: s, collection: s.db.Collection(RobotsCollection)}
}

// Commands returns the command repository
func (s *Store) Commands() *CommandRepository {
	return &CommandRepository{s: s, collection: s.db.Collection(CommandsCollection)}
}

// Outbox returns the transactional outbox
func (s *Store) Outbox() *outboxMongo.OutboxRepository { return s.outbox }

type shipmentDocument struct {
	ID      string `bson:"_id"`
	Barcode string `bson:"barcode"`
}

// FindShipmentIDByBarcode implements domain.ShipmentLookup over the shipments
// collection the shipping system maintains.
func (s *Store) FindShipmentIDByBarcode(ctx context.Context, barcode string) (string, error) {
	start := time.Now()
	var doc shipmentDocument
	err := s.db.Collection(ShipmentsCollection).FindOne(ctx, bson.M{"barcode": barcode}).Decode(&doc)
	s.client.Observe(ShipmentsCollection, "findOne", start, ignoreNoDocuments(err))
	if err != nil {
		return "", notFoundOr(err, "shipment", barcode)
	}
	return doc.ID, nil
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.NotFoundError{Resource: resource, ID: id}
	}
	return err
}

func ignoreNoDocuments(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}

// insertOne maps duplicate keys to domain.ErrAlreadyExists
func (s *Store) insertOne(ctx context.Context, collection *mongo.Collection, doc interface{}) error {
	start := time.Now()
	_, err := collection.InsertOne(ctx, doc)
	s.client.Observe(collection.Name(), "insertOne", start, err)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// upsertByID replaces the document with the given _id, creating it if absent
func (s *Store) upsertByID(ctx context.Context, collection *mongo.Collection, id string, doc interface{}) error {
	start := time.Now()
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	s.client.Observe(collection.Name(), "replaceOne", start, err)
	return err
}

// exists reports whether a document with the given _id is present
func (s *Store) exists(ctx context.Context, collection *mongo.Collection, id string) (bool, error) {
	n, err := collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func pageOptions(p domain.Pagination) *options.FindOptions {
	return options.Find().SetSkip(int64(p.Offset)).SetLimit(int64(p.Limit))
}
