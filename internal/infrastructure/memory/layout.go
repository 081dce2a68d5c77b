package memory

import (
	"context"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// LayoutRepository implements domain.LayoutRepository on the store's arena
type LayoutRepository struct {
	s *Store
}

func (r *LayoutRepository) SaveZone(ctx context.Context, zone *domain.Zone) error {
	defer r.s.lock(ctx)()
	return r.s.st.layout.AddZone(*zone)
}

func (r *LayoutRepository) SaveAisle(ctx context.Context, aisle *domain.Aisle) error {
	defer r.s.lock(ctx)()
	return r.s.st.layout.AddAisle(*aisle)
}

func (r *LayoutRepository) SaveRack(ctx context.Context, rack *domain.Rack) error {
	defer r.s.lock(ctx)()
	return r.s.st.layout.AddRack(*rack)
}

func (r *LayoutRepository) SaveBin(ctx context.Context, bin *domain.Bin) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.st.layout.Racks[bin.RackID]; !ok {
		return &domain.NotFoundError{Resource: "rack", ID: bin.RackID}
	}
	b := *bin
	r.s.st.layout.Bins[bin.ID] = &b
	return nil
}

func (r *LayoutRepository) FindZone(ctx context.Context, zoneID string) (*domain.Zone, error) {
	defer r.s.lock(ctx)()
	z, ok := r.s.st.layout.Zones[zoneID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "zone", ID: zoneID}
	}
	c := *z
	return &c, nil
}

func (r *LayoutRepository) FindAisle(ctx context.Context, aisleID string) (*domain.Aisle, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.st.layout.Aisles[aisleID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "aisle", ID: aisleID}
	}
	c := *a
	return &c, nil
}

func (r *LayoutRepository) FindRack(ctx context.Context, rackID string) (*domain.Rack, error) {
	defer r.s.lock(ctx)()
	rk, ok := r.s.st.layout.Racks[rackID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "rack", ID: rackID}
	}
	c := *rk
	return &c, nil
}

func (r *LayoutRepository) FindBin(ctx context.Context, binID string) (*domain.Bin, error) {
	defer r.s.lock(ctx)()
	b, err := r.s.st.layout.Bin(binID)
	if err != nil {
		return nil, err
	}
	c := *b
	return &c, nil
}

func (r *LayoutRepository) FindBinByBarcode(ctx context.Context, barcode string) (*domain.Bin, error) {
	defer r.s.lock(ctx)()
	for _, b := range r.s.st.layout.Bins {
		if b.Barcode != "" && b.Barcode == barcode {
			c := *b
			return &c, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "bin", ID: barcode}
}

func (r *LayoutRepository) DecrementBinLoad(ctx context.Context, binID string, quantity int) (bool, error) {
	defer r.s.lock(ctx)()
	b, err := r.s.st.layout.Bin(binID)
	if err != nil {
		return false, err
	}
	if b.CurrentLoad < quantity {
		return false, nil
	}
	return true, b.Withdraw(quantity)
}

func (r *LayoutRepository) IncrementBinLoad(ctx context.Context, binID string, quantity int) (bool, error) {
	defer r.s.lock(ctx)()
	b, err := r.s.st.layout.Bin(binID)
	if err != nil {
		return false, err
	}
	if b.CurrentLoad+quantity > b.Capacity {
		return false, nil
	}
	return true, b.Deposit(quantity)
}
