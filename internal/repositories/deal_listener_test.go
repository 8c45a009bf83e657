package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"dealdesk/internal/models"
)

// fetchCounter counts hub reads per owner.
type fetchCounter struct {
	mu    sync.Mutex
	reads map[string]int
}

func (f *fetchCounter) fetch(_ context.Context, ownerID string) ([]*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[ownerID]++
	return []*models.Deal{{ID: ownerID + "-1", OwnerID: ownerID}}, nil
}

func (f *fetchCounter) get(ownerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[ownerID]
}

func TestDealListener_ConsumeRefreshesSubscriptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	counter := &fetchCounter{reads: make(map[string]int)}
	hub := newSubscriptionHub(counter.fetch, zap.NewNop())
	l := &DealListener{hub: hub, logger: zap.NewNop()}

	ctx := context.Background()
	stopAlice := hub.subscribe(ctx, "alice", func([]*models.Deal) {})
	defer stopAlice()
	stopBob := hub.subscribe(ctx, "bob", func([]*models.Deal) {})
	defer stopBob()

	reads := func(alice, bob int) func() bool {
		return func() bool { return counter.get("alice") == alice && counter.get("bob") == bob }
	}
	require.Eventually(t, reads(1, 1), time.Second, 5*time.Millisecond)

	notify := make(chan *pq.Notification)
	done := make(chan error, 1)
	go func() {
		done <- l.consume(ctx, notify, func() error { return nil })
	}()

	notify <- &pq.Notification{Channel: dealChangesChannel, Extra: "alice"}
	require.Eventually(t, reads(2, 1), time.Second, 5*time.Millisecond)

	// unknown owner, nobody refreshes
	notify <- &pq.Notification{Channel: dealChangesChannel, Extra: "carol"}
	notify <- nil
	require.Eventually(t, reads(3, 2), time.Second, 5*time.Millisecond)
	assert.Zero(t, counter.get("carol"))

	close(notify)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consume did not return after the channel closed")
	}
}

func TestDealListener_ConsumeStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := newSubscriptionHub(func(context.Context, string) ([]*models.Deal, error) { return nil, nil }, zap.NewNop())
	l := &DealListener{hub: hub, logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.consume(ctx, make(chan *pq.Notification), func() error { return nil })
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consume did not return after cancel")
	}
}
