package services

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dealdesk/internal/metrics"
	"dealdesk/internal/models"
	"dealdesk/internal/repositories"
)

// notifyTimeout bounds one deal-closed notification across all channels.
const notifyTimeout = 30 * time.Second

var (
	ErrNotFound        = errors.New("deal not found")
	ErrUnauthenticated = errors.New("not signed in")
)

// DealStore is the document store the service writes through.
type DealStore interface {
	Create(ctx context.Context, deal *models.Deal) (string, error)
	GetByID(ctx context.Context, id string) (*models.Deal, error)
	UpdateFields(ctx context.Context, id string, fields models.DealFields) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Deal, error)
	Subscribe(ctx context.Context, ownerID string, onChange func([]*models.Deal)) (func(), error)
}

// DealService is the only way deals are read or written. Every call is scoped
// to the given owner: deals of other owners look like missing ones.
type DealService struct {
	store    DealStore
	notifier DealNotifier
	logger   *zap.Logger

	pending sync.WaitGroup
}

func NewDealService(store DealStore, notifier DealNotifier, logger *zap.Logger) *DealService {
	if notifier == nil {
		notifier = Notifiers{}
	}
	return &DealService{store: store, notifier: notifier, logger: logger.Named("deals")}
}

// Create validates the candidate and stores a new deal owned by owner.
// A *ValidationError is returned as is.
func (s *DealService) Create(ctx context.Context, owner *models.Identity, c models.DealCandidate) (*models.Deal, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	res := ValidateDeal(c)
	if !res.OK() {
		metrics.Observe("create", metrics.ResultInvalid)
		return nil, res.Err
	}

	deal := &models.Deal{
		Name:    res.Fields.Name,
		Stage:   res.Fields.Stage,
		OwnerID: owner.ID,
	}
	if _, err := s.store.Create(ctx, deal); err != nil {
		metrics.Observe("create", metrics.ResultError)
		return nil, errors.Wrap(err, "could not create deal")
	}
	metrics.Observe("create", metrics.ResultOK)
	s.logger.Debug("deal created", zap.String("id", deal.ID), zap.String("owner_id", owner.ID))
	return deal, nil
}

// Get is a point read, it does not go through any subscription.
func (s *DealService) Get(ctx context.Context, owner *models.Identity, id string) (*models.Deal, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	deal, err := s.store.GetByID(ctx, id)
	if err != nil {
		metrics.Observe("get", metrics.ResultError)
		return nil, errors.Wrap(err, "could not get deal")
	}
	metrics.Observe("get", metrics.ResultOK)
	if deal == nil || deal.OwnerID != owner.ID {
		return nil, ErrNotFound
	}
	return deal, nil
}

// Update writes name and stage of an existing deal. Moving a deal into a
// closed stage notifies the owner.
func (s *DealService) Update(ctx context.Context, owner *models.Identity, id string, c models.DealCandidate) (*models.Deal, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	res := ValidateDeal(c)
	if !res.OK() {
		metrics.Observe("update", metrics.ResultInvalid)
		return nil, res.Err
	}

	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateFields(ctx, id, res.Fields); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		metrics.Observe("update", metrics.ResultError)
		return nil, errors.Wrap(err, "could not update deal")
	}
	metrics.Observe("update", metrics.ResultOK)

	updated := *current
	updated.Name = res.Fields.Name
	updated.Stage = res.Fields.Stage

	if updated.Stage.Closed() && !current.Stage.Closed() {
		s.notifyClosed(*owner, updated)
	}
	return &updated, nil
}

// notifyClosed sends in the background so a slow channel never holds up the
// caller. The send is not tied to the request context, which ends first.
func (s *DealService) notifyClosed(owner models.Identity, deal models.Deal) {
	if n, ok := s.notifier.(Notifiers); ok && len(n) == 0 {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.DealClosed(ctx, &owner, &deal); err != nil {
			s.logger.Warn("could not send deal closed notification",
				zap.String("id", deal.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until pending notifications are sent or have timed out.
func (s *DealService) Wait() {
	s.pending.Wait()
}

func (s *DealService) Delete(ctx context.Context, owner *models.Identity, id string) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		metrics.Observe("delete", metrics.ResultError)
		return errors.Wrap(err, "could not delete deal")
	}
	metrics.Observe("delete", metrics.ResultOK)
	return nil
}

func (s *DealService) List(ctx context.Context, owner *models.Identity) ([]*models.Deal, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	deals, err := s.store.ListByOwner(ctx, owner.ID)
	if err != nil {
		metrics.Observe("list", metrics.ResultError)
		return nil, errors.Wrap(err, "could not list deals")
	}
	metrics.Observe("list", metrics.ResultOK)
	return deals, nil
}

// Subscribe opens a live query on the owner's deals. onChange always gets the
// full current list.
func (s *DealService) Subscribe(ctx context.Context, owner *models.Identity, onChange func([]*models.Deal)) (func(), error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	unsubscribe, err := s.store.Subscribe(ctx, owner.ID, onChange)
	if err != nil {
		metrics.Observe("subscribe", metrics.ResultError)
		return nil, errors.Wrap(err, "could not subscribe to deals")
	}
	metrics.Observe("subscribe", metrics.ResultOK)
	return unsubscribe, nil
}

var seedDeals = []models.DealCandidate{
	{Name: "Seed Deal 1", Stage: string(models.StageProspecting)},
	{Name: "Seed Deal 2", Stage: string(models.StageNegotiation)},
}

// Seed creates the sample deals for owner. Failures are logged and skipped.
func (s *DealService) Seed(ctx context.Context, owner *models.Identity) []*models.Deal {
	created := make([]*models.Deal, 0, len(seedDeals))
	for _, c := range seedDeals {
		deal, err := s.Create(ctx, owner, c)
		if err != nil {
			s.logger.Error("could not seed deal", zap.String("name", c.Name), zap.Error(err))
			continue
		}
		created = append(created, deal)
	}
	return created
}
