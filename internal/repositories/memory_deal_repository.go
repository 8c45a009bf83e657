package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dealdesk/internal/models"
)

// MemoryDealRepository keeps deals in process. It backs the "memory" storage
// driver and the tests; change notification is immediate.
type MemoryDealRepository struct {
	mu    sync.RWMutex
	deals map[string]*models.Deal
	order []string
	now   func() time.Time
	hub   *subscriptionHub
}

func NewMemoryDealRepository(logger *zap.Logger) *MemoryDealRepository {
	r := &MemoryDealRepository{
		deals: make(map[string]*models.Deal),
		now:   time.Now,
	}
	r.hub = newSubscriptionHub(r.ListByOwner, logger.Named("subscriptions"))
	return r
}

func (r *MemoryDealRepository) Create(_ context.Context, deal *models.Deal) (string, error) {
	r.mu.Lock()
	deal.ID = uuid.NewString()
	deal.CreatedAt = r.now().UTC()
	stored := *deal
	r.deals[stored.ID] = &stored
	r.order = append(r.order, stored.ID)
	r.mu.Unlock()

	r.hub.notify(stored.OwnerID)
	return stored.ID, nil
}

func (r *MemoryDealRepository) GetByID(_ context.Context, id string) (*models.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deals[id]
	if !ok {
		return nil, nil
	}
	out := *d
	return &out, nil
}

func (r *MemoryDealRepository) UpdateFields(_ context.Context, id string, fields models.DealFields) error {
	r.mu.Lock()
	d, ok := r.deals[id]
	if !ok {
		r.mu.Unlock()
		return errors.Wrapf(ErrNotFound, "deal %s", id)
	}
	d.Name = fields.Name
	d.Stage = fields.Stage
	owner := d.OwnerID
	r.mu.Unlock()

	r.hub.notify(owner)
	return nil
}

func (r *MemoryDealRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	d, ok := r.deals[id]
	if !ok {
		r.mu.Unlock()
		return errors.Wrapf(ErrNotFound, "deal %s", id)
	}
	delete(r.deals, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.hub.notify(d.OwnerID)
	return nil
}

func (r *MemoryDealRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deals := make([]*models.Deal, 0)
	for _, id := range r.order {
		d := r.deals[id]
		if d.OwnerID != ownerID {
			continue
		}
		out := *d
		deals = append(deals, &out)
	}
	return deals, nil
}

func (r *MemoryDealRepository) Subscribe(ctx context.Context, ownerID string, onChange func([]*models.Deal)) (func(), error) {
	return r.hub.subscribe(ctx, ownerID, onChange), nil
}
