package services

import (
	"context"

	"go.uber.org/multierr"

	"dealdesk/internal/models"
)

// DealNotifier is told when a deal reaches a closed stage.
type DealNotifier interface {
	DealClosed(ctx context.Context, owner *models.Identity, deal *models.Deal) error
}

// Notifiers fans a notification out to every configured channel.
type Notifiers []DealNotifier

func (n Notifiers) DealClosed(ctx context.Context, owner *models.Identity, deal *models.Deal) error {
	var err error
	for _, notifier := range n {
		err = multierr.Append(err, notifier.DealClosed(ctx, owner, deal))
	}
	return err
}

// sendWithContext runs a send that cannot be cancelled itself and gives up
// waiting when ctx is done.
func sendWithContext(ctx context.Context, send func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- send() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closedOutcome(stage models.Stage) string {
	if stage == models.StageClosedWon {
		return "won"
	}
	return "lost"
}
