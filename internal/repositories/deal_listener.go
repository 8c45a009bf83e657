package repositories

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	dealChangesChannel   = "deal_changes"
	listenerPingInterval = 90 * time.Second
)

// DealListener turns Postgres notifications from the deals trigger into
// subscription refreshes. The payload of each notification is the owner id.
type DealListener struct {
	listener *pq.Listener
	hub      *subscriptionHub
	logger   *zap.Logger
}

func NewDealListener(dsn string, repo *DealRepository, logger *zap.Logger) *DealListener {
	logger = logger.Named("listener")
	report := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("listening for deal changes")
		case pq.ListenerEventDisconnected:
			logger.Warn("deal change listener disconnected", zap.Error(err))
		case pq.ListenerEventReconnected:
			logger.Info("deal change listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Warn("deal change listener connection attempt failed", zap.Error(err))
		}
	}
	return &DealListener{
		listener: pq.NewListener(dsn, 10*time.Second, time.Minute, report),
		hub:      repo.hub,
		logger:   logger,
	}
}

// Run blocks until ctx is done.
func (l *DealListener) Run(ctx context.Context) error {
	if err := l.listener.Listen(dealChangesChannel); err != nil {
		return errors.Wrapf(err, "could not listen on %s", dealChangesChannel)
	}
	defer func() {
		if err := l.listener.Close(); err != nil {
			l.logger.Warn("could not close listener", zap.Error(err))
		}
	}()

	return l.consume(ctx, l.listener.Notify, l.listener.Ping)
}

// consume relays notifications to the hub until ctx is done or notify is
// closed. ping runs after a quiet period to detect a dead connection.
func (l *DealListener) consume(ctx context.Context, notify <-chan *pq.Notification, ping func() error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notify:
			if !ok {
				return nil
			}
			if n == nil {
				// reconnected, notifications in between are lost
				l.hub.notifyAll()
				continue
			}
			l.hub.notify(n.Extra)
		case <-time.After(listenerPingInterval):
			go func() {
				if err := ping(); err != nil {
					l.logger.Warn("listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}
