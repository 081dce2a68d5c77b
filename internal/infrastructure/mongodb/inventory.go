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

// ItemRepository implements domain.ItemRepository
type ItemRepository struct {
	s          *Store
	collection *mongo.Collection
}

func (r *ItemRepository) Save(ctx context.Context, item *domain.Item) error {
	return r.s.upsertByID(ctx, r.collection, item.ID, item)
}

func (r *ItemRepository) FindByID(ctx context.Context, itemID string) (*domain.Item, error) {
	return r.find(ctx, bson.M{"_id": itemID}, itemID)
}

func (r *ItemRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Item, error) {
	return r.find(ctx, bson.M{"barcode": barcode}, barcode)
}

func (r *ItemRepository) find(ctx context.Context, filter bson.M, key string) (*domain.Item, error) {
	start := time.Now()
	var item domain.Item
	err := r.collection.FindOne(ctx, filter).Decode(&item)
	r.s.client.Observe(ItemsCollection, "findOne", start, ignoreNoDocuments(err))
	if err != nil {
		return nil, notFoundOr(err, "item", key)
	}
	return &item, nil
}

// StockRepository implements domain.StockRepository. A unit is keyed by the
// unique (binId, itemId) pair.
type StockRepository struct {
	s          *Store
	collection *mongo.Collection
}

func (r *StockRepository) FindByItem(ctx context.Context, itemID string) ([]*domain.StockUnit, error) {
	start := time.Now()
	opts := options.Find().SetSort(bson.D{{Key: "binId", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"itemId": itemID, "quantity": bson.M{"$gt": 0}}, opts)
	r.s.client.Observe(StockCollection, "find", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to find stock of %s: %w", itemID, err)
	}
	defer cursor.Close(ctx)

	units := make([]*domain.StockUnit, 0)
	if err := cursor.All(ctx, &units); err != nil {
		return nil, err
	}
	return units, nil
}

func (r *StockRepository) FindOne(ctx context.Context, binID, itemID string) (*domain.StockUnit, error) {
	start := time.Now()
	var unit domain.StockUnit
	err := r.collection.FindOne(ctx, bson.M{"binId": binID, "itemId": itemID}).Decode(&unit)
	r.s.client.Observe(StockCollection, "findOne", start, ignoreNoDocuments(err))
	if err != nil {
		return nil, notFoundOr(err, "stockUnit", domain.StockKey(binID, itemID))
	}
	return &unit, nil
}

// Decrement lowers the quantity only if quantity >= amount
func (r *StockRepository) Decrement(ctx context.Context, binID, itemID string, amount int) (bool, error) {
	start := time.Now()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"binId": binID, "itemId": itemID, "quantity": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"quantity": -amount},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	r.s.client.Observe(StockCollection, "updateOne", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// Merge adds to the unit, creating it if absent. $min keeps the earliest
// expiry and takes the new one when the unit had none.
func (r *StockRepository) Merge(ctx context.Context, unit *domain.StockUnit) error {
	updatedAt := unit.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	update := bson.M{
		"$inc":         bson.M{"quantity": unit.Quantity},
		"$set":         bson.M{"updatedAt": updatedAt},
		"$setOnInsert": bson.M{"binId": unit.BinID, "itemId": unit.ItemID},
	}
	if unit.ExpiryDate != nil {
		update["$min"] = bson.M{"expiryDate": *unit.ExpiryDate}
	}
	if unit.BatchID != "" {
		update["$set"].(bson.M)["batchId"] = unit.BatchID
	}

	start := time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"binId": unit.BinID, "itemId": unit.ItemID},
		update,
		options.Update().SetUpsert(true),
	)
	r.s.client.Observe(StockCollection, "upsert", start, err)
	if err != nil {
		return fmt.Errorf("failed to merge stock: %w", err)
	}
	return nil
}

// MovementRepository implements domain.MovementRepository
type MovementRepository struct {
	s          *Store
	collection *mongo.Collection
}

func (r *MovementRepository) Append(ctx context.Context, records ...*domain.MovementRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}

	start := time.Now()
	_, err := r.collection.InsertMany(ctx, docs)
	r.s.client.Observe(MovementsCollection, "insertMany", start, err)
	if err != nil {
		return fmt.Errorf("failed to append movements: %w", err)
	}
	return nil
}

func (r *MovementRepository) ExistsForPlan(ctx context.Context, planID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"planId": planID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MovementRepository) Find(ctx context.Context, filter domain.MovementFilter) ([]*domain.MovementRecord, int64, error) {
	query := bson.M{}
	if filter.PlanID != "" {
		query["planId"] = filter.PlanID
	}
	if filter.ItemID != "" {
		query["itemId"] = filter.ItemID
	}
	if filter.BinID != "" {
		query["sourceBinId"] = filter.BinID
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	start := time.Now()
	opts := pageOptions(filter.Pagination).SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "planId", Value: 1},
		{Key: "sequence", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, query, opts)
	r.s.client.Observe(MovementsCollection, "find", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find movements: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*domain.MovementRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// PlanRepository implements domain.PlanRepository
type PlanRepository struct {
	s          *Store
	collection *mongo.Collection
}

func (r *PlanRepository) Save(ctx context.Context, plan *domain.FulfillmentPlan) error {
	return r.s.insertOne(ctx, r.collection, plan)
}

func (r *PlanRepository) FindByID(ctx context.Context, planID string) (*domain.FulfillmentPlan, error) {
	start := time.Now()
	var plan domain.FulfillmentPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": planID}).Decode(&plan)
	r.s.client.Observe(PlansCollection, "findOne", start, ignoreNoDocuments(err))
	if err != nil {
		return nil, notFoundOr(err, "plan", planID)
	}
	return &plan, nil
}
