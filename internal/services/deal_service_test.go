package services

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dealdesk/internal/models"
	"dealdesk/internal/repositories"
)

var (
	alice = &models.Identity{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	bob   = &models.Identity{ID: "bob", DisplayName: "Bob"}
)

type closedRecorder struct {
	mu     sync.Mutex
	closed []*models.Deal
	err    error
}

func (r *closedRecorder) DealClosed(_ context.Context, _ *models.Identity, deal *models.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, deal)
	return r.err
}

// countingStore counts store calls made through the service.
type countingStore struct {
	DealStore
	mu    sync.Mutex
	calls int
	fail  error
}

func (s *countingStore) hit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.fail
}

func (s *countingStore) Create(ctx context.Context, deal *models.Deal) (string, error) {
	if err := s.hit(); err != nil {
		return "", err
	}
	return s.DealStore.Create(ctx, deal)
}

func (s *countingStore) GetByID(ctx context.Context, id string) (*models.Deal, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.DealStore.GetByID(ctx, id)
}

func (s *countingStore) UpdateFields(ctx context.Context, id string, f models.DealFields) error {
	if err := s.hit(); err != nil {
		return err
	}
	return s.DealStore.UpdateFields(ctx, id, f)
}

func newTestService(t *testing.T) (*DealService, *countingStore, *closedRecorder) {
	t.Helper()
	store := &countingStore{DealStore: repositories.NewMemoryDealRepository(zap.NewNop())}
	notifier := &closedRecorder{}
	return NewDealService(store, notifier, zap.NewNop()), store, notifier
}

func TestDealService_CreateTrimsAndOwns(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	deal, err := svc.Create(ctx, alice, models.DealCandidate{Name: "  Acme Co  ", Stage: "prospecting"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", deal.Name)
	assert.Equal(t, "alice", deal.OwnerID)
	assert.NotEmpty(t, deal.ID)

	deals, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, deal.ID, deals[0].ID)
}

func TestDealService_InvalidInputNeverReachesStore(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, models.DealCandidate{Name: "  ", Stage: "prospecting"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, CodeNameRequired, verr.Code)

	_, err = svc.Update(ctx, alice, "whatever", models.DealCandidate{Name: "x", Stage: "nope"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, CodeInvalidStage, verr.Code)

	_, err = svc.Create(ctx, nil, models.DealCandidate{Name: "x", Stage: "dealing"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.Equal(t, 0, store.calls)
}

func TestDealService_OwnerScoping(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	deal, err := svc.Create(ctx, alice, models.DealCandidate{Name: "Acme Co", Stage: "dealing"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, deal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, bob, deal.ID, models.DealCandidate{Name: "Mine", Stage: "dealing"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, bob, deal.ID), ErrNotFound)

	got, err := svc.Get(ctx, alice, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", got.Name)
}

func TestDealService_UpdateTouchesOnlyNameAndStage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	deal, err := svc.Create(ctx, alice, models.DealCandidate{Name: "Acme Co", Stage: "prospecting"})
	require.NoError(t, err)
	before, err := svc.Get(ctx, alice, deal.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, alice, deal.ID, models.DealCandidate{Name: " Acme Corp ", Stage: "negotiation"})
	require.NoError(t, err)

	after, err := svc.Get(ctx, alice, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", after.Name)
	assert.Equal(t, models.StageNegotiation, after.Stage)
	assert.Equal(t, before.OwnerID, after.OwnerID)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, before.ID, after.ID)
}

func TestDealService_DeleteLeavesOthers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	x, err := svc.Create(ctx, alice, models.DealCandidate{Name: "X", Stage: "dealing"})
	require.NoError(t, err)
	y, err := svc.Create(ctx, alice, models.DealCandidate{Name: "Y", Stage: "dealing"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, x.ID))

	deals, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, y.ID, deals[0].ID)
	assert.Equal(t, "Y", deals[0].Name)
}

func TestDealService_ClosedNotification(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	deal, err := svc.Create(ctx, alice, models.DealCandidate{Name: "Acme Co", Stage: "dealing"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, alice, deal.ID, models.DealCandidate{Name: "Acme Co", Stage: "closedWon"})
	require.NoError(t, err)
	// already closed, no second notice
	_, err = svc.Update(ctx, alice, deal.ID, models.DealCandidate{Name: "Acme Co", Stage: "closedLost"})
	require.NoError(t, err)
	svc.Wait()

	require.Len(t, notifier.closed, 1)
	assert.Equal(t, models.StageClosedWon, notifier.closed[0].Stage)
}

func TestDealService_NotifierFailureDoesNotFailUpdate(t *testing.T) {
	svc, _, notifier := newTestService(t)
	notifier.err = errors.New("smtp down")
	ctx := context.Background()

	deal, err := svc.Create(ctx, alice, models.DealCandidate{Name: "Acme Co", Stage: "dealing"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, alice, deal.ID, models.DealCandidate{Name: "Acme Co", Stage: "closedLost"})
	require.NoError(t, err)
	svc.Wait()
	assert.Len(t, notifier.closed, 1)
}

// blockingNotifier holds every send until released or cancelled.
type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingNotifier) DealClosed(ctx context.Context, _ *models.Identity, _ *models.Deal) error {
	close(b.started)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDealService_UpdateDoesNotWaitForNotifier(t *testing.T) {
	store := repositories.NewMemoryDealRepository(zap.NewNop())
	notifier := &blockingNotifier{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewDealService(store, notifier, zap.NewNop())
	ctx := context.Background()

	deal, err := svc.Create(ctx, alice, models.DealCandidate{Name: "Acme Co", Stage: "dealing"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, alice, deal.ID, models.DealCandidate{Name: "Acme Co", Stage: "closedWon"})
	require.NoError(t, err)
	assert.Equal(t, models.StageClosedWon, updated.Stage)

	<-notifier.started
	close(notifier.release)
	svc.Wait()
}

func TestDealService_StoreFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.fail = errors.New("connection refused")

	_, err := svc.Create(context.Background(), alice, models.DealCandidate{Name: "Acme Co", Stage: "dealing"})
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDealService_Seed(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := svc.Seed(context.Background(), alice)
	require.Len(t, created, 2)
	assert.Equal(t, "Seed Deal 1", created[0].Name)
	assert.Equal(t, models.StageNegotiation, created[1].Stage)
}
