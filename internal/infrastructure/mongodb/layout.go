package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// LayoutRepository implements domain.LayoutRepository
type LayoutRepository struct {
	s      *Store
	zones  *mongo.Collection
	aisles *mongo.Collection
	racks  *mongo.Collection
	bins   *mongo.Collection
}

func newLayoutRepository(s *Store) *LayoutRepository {
	return &LayoutRepository{
		s:      s,
		zones:  s.db.Collection(ZonesCollection),
		aisles: s.db.Collection(AislesCollection),
		racks:  s.db.Collection(RacksCollection),
		bins:   s.db.Collection(BinsCollection),
	}
}

func (r *LayoutRepository) SaveZone(ctx context.Context, zone *domain.Zone) error {
	return r.s.upsertByID(ctx, r.zones, zone.ID, zone)
}

func (r *LayoutRepository) SaveAisle(ctx context.Context, aisle *domain.Aisle) error {
	return r.s.upsertByID(ctx, r.aisles, aisle.ID, aisle)
}

func (r *LayoutRepository) SaveRack(ctx context.Context, rack *domain.Rack) error {
	return r.s.upsertByID(ctx, r.racks, rack.ID, rack)
}

func (r *LayoutRepository) SaveBin(ctx context.Context, bin *domain.Bin) error {
	return r.s.upsertByID(ctx, r.bins, bin.ID, bin)
}

func (r *LayoutRepository) FindZone(ctx context.Context, zoneID string) (*domain.Zone, error) {
	var zone domain.Zone
	if err := r.findOne(ctx, r.zones, bson.M{"_id": zoneID}, &zone); err != nil {
		return nil, notFoundOr(err, "zone", zoneID)
	}
	return &zone, nil
}

func (r *LayoutRepository) FindAisle(ctx context.Context, aisleID string) (*domain.Aisle, error) {
	var aisle domain.Aisle
	if err := r.findOne(ctx, r.aisles, bson.M{"_id": aisleID}, &aisle); err != nil {
		return nil, notFoundOr(err, "aisle", aisleID)
	}
	return &aisle, nil
}

func (r *LayoutRepository) FindRack(ctx context.Context, rackID string) (*domain.Rack, error) {
	var rack domain.Rack
	if err := r.findOne(ctx, r.racks, bson.M{"_id": rackID}, &rack); err != nil {
		return nil, notFoundOr(err, "rack", rackID)
	}
	return &rack, nil
}

func (r *LayoutRepository) FindBin(ctx context.Context, binID string) (*domain.Bin, error) {
	var bin domain.Bin
	if err := r.findOne(ctx, r.bins, bson.M{"_id": binID}, &bin); err != nil {
		return nil, notFoundOr(err, "bin", binID)
	}
	return &bin, nil
}

func (r *LayoutRepository) FindBinByBarcode(ctx context.Context, barcode string) (*domain.Bin, error) {
	var bin domain.Bin
	if err := r.findOne(ctx, r.bins, bson.M{"barcode": barcode}, &bin); err != nil {
		return nil, notFoundOr(err, "bin", barcode)
	}
	return &bin, nil
}

// DecrementBinLoad lowers the load only if currentLoad >= quantity
func (r *LayoutRepository) DecrementBinLoad(ctx context.Context, binID string, quantity int) (bool, error) {
	filter := bson.M{"_id": binID, "currentLoad": bson.M{"$gte": quantity}}
	return r.adjustLoad(ctx, binID, filter, -quantity)
}

// IncrementBinLoad raises the load only if currentLoad+quantity <= capacity
func (r *LayoutRepository) IncrementBinLoad(ctx context.Context, binID string, quantity int) (bool, error) {
	filter := bson.M{
		"_id": binID,
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{"$currentLoad", quantity}},
			"$capacity",
		}},
	}
	return r.adjustLoad(ctx, binID, filter, quantity)
}

func (r *LayoutRepository) adjustLoad(ctx context.Context, binID string, filter bson.M, delta int) (bool, error) {
	start := time.Now()
	res, err := r.bins.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"currentLoad": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	r.s.client.Observe(BinsCollection, "updateOne", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to adjust load of bin %s: %w", binID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	found, err := r.s.exists(ctx, r.bins, binID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, &domain.NotFoundError{Resource: "bin", ID: binID}
	}
	return false, nil
}

func (r *LayoutRepository) findOne(ctx context.Context, collection *mongo.Collection, filter bson.M, out interface{}) error {
	start := time.Now()
	err := collection.FindOne(ctx, filter).Decode(out)
	r.s.client.Observe(collection.Name(), "findOne", start, ignoreNoDocuments(err))
	return err
}
