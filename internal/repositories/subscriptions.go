package repositories

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"dealdesk/internal/metrics"
	"dealdesk/internal/models"
)

type fetchFunc func(ctx context.Context, ownerID string) ([]*models.Deal, error)

type subscription struct {
	ownerID  string
	onChange func([]*models.Deal)
	dirty    chan struct{}
	done     chan struct{}
	stopped  chan struct{}
}

// subscriptionHub keeps live owner-filtered queries. Every subscription runs
// its own goroutine: a change marks it dirty, the goroutine re-reads the
// owner's full list and hands it to onChange. Marks coalesce.
type subscriptionHub struct {
	mu     sync.RWMutex
	owners map[string]map[*subscription]struct{}
	fetch  fetchFunc
	logger *zap.Logger
}

func newSubscriptionHub(fetch fetchFunc, logger *zap.Logger) *subscriptionHub {
	return &subscriptionHub{
		owners: make(map[string]map[*subscription]struct{}),
		fetch:  fetch,
		logger: logger,
	}
}

// subscribe delivers the current list right away and again after every
// change. The returned func is synchronous: once it returns, onChange is
// never called again for this subscription.
func (h *subscriptionHub) subscribe(ctx context.Context, ownerID string, onChange func([]*models.Deal)) func() {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ownerID:  ownerID,
		onChange: onChange,
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	sub.dirty <- struct{}{}

	h.mu.Lock()
	if h.owners[ownerID] == nil {
		h.owners[ownerID] = make(map[*subscription]struct{})
	}
	h.owners[ownerID][sub] = struct{}{}
	h.mu.Unlock()
	metrics.LiveSubscriptions.Inc()

	go h.run(ctx, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.remove(sub)
			close(sub.done)
			cancel()
			<-sub.stopped
			metrics.LiveSubscriptions.Dec()
		})
	}
}

func (h *subscriptionHub) remove(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.owners[sub.ownerID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.owners, sub.ownerID)
		}
	}
}

func (h *subscriptionHub) run(ctx context.Context, sub *subscription) {
	defer close(sub.stopped)
	for {
		select {
		case <-sub.done:
			return
		case <-sub.dirty:
		}

		deals, err := h.fetch(ctx, sub.ownerID)
		select {
		case <-sub.done:
			return
		default:
		}
		if err != nil {
			h.logger.Warn("subscription refresh failed",
				zap.String("owner_id", sub.ownerID), zap.Error(err))
			continue
		}
		sub.onChange(deals)
	}
}

// notify marks every subscription of ownerID dirty.
func (h *subscriptionHub) notify(ownerID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.owners[ownerID] {
		markDirty(sub)
	}
}

// notifyAll is used when change events may have been lost.
func (h *subscriptionHub) notifyAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.owners {
		for sub := range subs {
			markDirty(sub)
		}
	}
}

func (h *subscriptionHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.owners {
		n += len(subs)
	}
	return n
}

func markDirty(sub *subscription) {
	select {
	case sub.dirty <- struct{}{}:
	default:
	}
}
