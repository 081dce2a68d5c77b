package memory

import (
	"context"
	"sort"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// ItemRepository implements domain.ItemRepository
type ItemRepository struct {
	s *Store
}

func (r *ItemRepository) Save(ctx context.Context, item *domain.Item) error {
	defer r.s.lock(ctx)()
	r.s.st.items[item.ID] = copyItem(item)
	return nil
}

func (r *ItemRepository) FindByID(ctx context.Context, itemID string) (*domain.Item, error) {
	defer r.s.lock(ctx)()
	item, ok := r.s.st.items[itemID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "item", ID: itemID}
	}
	return copyItem(item), nil
}

func (r *ItemRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Item, error) {
	defer r.s.lock(ctx)()
	for _, item := range r.s.st.items {
		if item.Barcode != "" && item.Barcode == barcode {
			return copyItem(item), nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "item", ID: barcode}
}

// StockRepository implements domain.StockRepository
type StockRepository struct {
	s *Store
}

func (r *StockRepository) FindByItem(ctx context.Context, itemID string) ([]*domain.StockUnit, error) {
	defer r.s.lock(ctx)()
	units := make([]*domain.StockUnit, 0)
	for _, u := range r.s.st.stock {
		if u.ItemID == itemID && u.Quantity > 0 {
			units = append(units, copyStock(u))
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].BinID < units[j].BinID })
	return units, nil
}

func (r *StockRepository) FindOne(ctx context.Context, binID, itemID string) (*domain.StockUnit, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.st.stock[domain.StockKey(binID, itemID)]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "stock", ID: domain.StockKey(binID, itemID)}
	}
	return copyStock(u), nil
}

func (r *StockRepository) Decrement(ctx context.Context, binID, itemID string, amount int) (bool, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.st.stock[domain.StockKey(binID, itemID)]
	if !ok || u.Quantity < amount {
		return false, nil
	}
	u.Quantity -= amount
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *StockRepository) Merge(ctx context.Context, unit *domain.StockUnit) error {
	defer r.s.lock(ctx)()
	key := unit.Key()
	existing, ok := r.s.st.stock[key]
	if !ok {
		c := copyStock(unit)
		c.UpdatedAt = time.Now().UTC()
		r.s.st.stock[key] = c
		return nil
	}

	existing.Quantity += unit.Quantity
	if unit.ExpiryDate != nil && (existing.ExpiryDate == nil || unit.ExpiryDate.Before(*existing.ExpiryDate)) {
		e := *unit.ExpiryDate
		existing.ExpiryDate = &e
	}
	if unit.BatchID != "" {
		existing.BatchID = unit.BatchID
	}
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// MovementRepository implements domain.MovementRepository. Records are never
// modified once appended.
type MovementRepository struct {
	s *Store
}

func (r *MovementRepository) Append(ctx context.Context, records ...*domain.MovementRecord) error {
	defer r.s.lock(ctx)()
	for _, rec := range records {
		c := *rec
		r.s.st.movements = append(r.s.st.movements, &c)
	}
	return nil
}

func (r *MovementRepository) ExistsForPlan(ctx context.Context, planID string) (bool, error) {
	defer r.s.lock(ctx)()
	for _, m := range r.s.st.movements {
		if m.PlanID == planID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MovementRepository) Find(ctx context.Context, filter domain.MovementFilter) ([]*domain.MovementRecord, int64, error) {
	defer r.s.lock(ctx)()
	matched := make([]*domain.MovementRecord, 0)
	for _, m := range r.s.st.movements {
		if filter.PlanID != "" && m.PlanID != filter.PlanID {
			continue
		}
		if filter.ItemID != "" && m.ItemID != filter.ItemID {
			continue
		}
		if filter.BinID != "" && m.SourceBinID != filter.BinID {
			continue
		}
		c := *m
		matched = append(matched, &c)
	}
	return paginate(matched, filter.Pagination), int64(len(matched)), nil
}

// PlanRepository implements domain.PlanRepository
type PlanRepository struct {
	s *Store
}

func (r *PlanRepository) Save(ctx context.Context, plan *domain.FulfillmentPlan) error {
	defer r.s.lock(ctx)()
	c := *plan
	c.Steps = append([]domain.PickStep(nil), plan.Steps...)
	r.s.st.plans[plan.PlanID] = &c
	return nil
}

func (r *PlanRepository) FindByID(ctx context.Context, planID string) (*domain.FulfillmentPlan, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.st.plans[planID]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "plan", ID: planID}
	}
	c := *p
	c.Steps = append([]domain.PickStep(nil), p.Steps...)
	return &c, nil
}
