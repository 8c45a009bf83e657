// Package controller drives one connected page: it follows identity changes,
// keeps the live deal subscription of the signed-in user and turns page
// intents into service calls.
package controller

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dealdesk/internal/models"
	"dealdesk/internal/services"
	"dealdesk/internal/view"
)

const (
	NoticeSignInToCreate = "Sign in to create deals."
	NoticeSignInToManage = "Sign in to manage deals."
	NoticeDealGone       = "This deal no longer exists."
	NoticeLoadFailed     = "Failed to load deals."
	NoticeGetFailed      = "Failed to load deal."
	NoticeCreateFailed   = "Failed to create deal."
	NoticeUpdateFailed   = "Failed to update deal."
	NoticeDeleteFailed   = "Failed to delete deal."
)

// Surface is what the user sees. Implementations must be safe for
// concurrent use: list deliveries arrive on subscription goroutines.
type Surface interface {
	ShowIdentity(line string)
	ShowDeals(list view.List)
	ShowNotice(message string)
	OpenEditor(form view.EditForm)
	CloseEditor()
	ResetCreateForm()
}

type DealService interface {
	Create(ctx context.Context, owner *models.Identity, c models.DealCandidate) (*models.Deal, error)
	Get(ctx context.Context, owner *models.Identity, id string) (*models.Deal, error)
	Update(ctx context.Context, owner *models.Identity, id string, c models.DealCandidate) (*models.Deal, error)
	Delete(ctx context.Context, owner *models.Identity, id string) error
	Subscribe(ctx context.Context, owner *models.Identity, onChange func([]*models.Deal)) (func(), error)
}

// State is the part of the controller an observer may care about.
// EditTarget is empty when the editor is closed.
type State struct {
	Identity   *models.Identity
	EditTarget string
}

type Controller struct {
	deals   DealService
	surface Surface
	logger  *zap.Logger

	mu          sync.Mutex
	state       State
	unsubscribe func()

	// renderMu orders list renders; gen identifies the subscription whose
	// deliveries may still be rendered.
	renderMu sync.Mutex
	gen      uint64
}

func New(deals DealService, surface Surface, logger *zap.Logger) *Controller {
	return &Controller{
		deals:   deals,
		surface: surface,
		logger:  logger.Named("controller"),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IdentityChanged switches the page to another identity, or to signed out
// when identity is nil. The previous subscription is cancelled before a new
// one is opened and none of its deliveries is rendered afterwards.
func (c *Controller) IdentityChanged(ctx context.Context, identity *models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.bumpGeneration()
	c.cancelSubscription()

	if c.state.EditTarget != "" {
		c.state.EditTarget = ""
		c.surface.CloseEditor()
	}
	c.state.Identity = identity
	c.surface.ShowIdentity(view.IdentityLine(identity))
	// the previous owner's deals must not stay visible until the first delivery
	c.render(gen, nil)

	if identity == nil {
		return
	}

	unsubscribe, err := c.deals.Subscribe(ctx, identity, func(deals []*models.Deal) {
		c.render(gen, deals)
	})
	if err != nil {
		c.logger.Error("could not subscribe to deals", zap.String("owner_id", identity.ID), zap.Error(err))
		c.surface.ShowNotice(NoticeLoadFailed)
		return
	}
	c.unsubscribe = unsubscribe
	c.logger.Debug("subscribed", zap.String("owner_id", identity.ID))
}

func (c *Controller) Create(ctx context.Context, name, stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Identity == nil {
		c.surface.ShowNotice(NoticeSignInToCreate)
		return
	}
	_, err := c.deals.Create(ctx, c.state.Identity, models.DealCandidate{Name: name, Stage: stage})
	if err != nil {
		c.fail("create", err, NoticeCreateFailed)
		return
	}
	c.surface.ResetCreateForm()
}

// Edit opens the editor with a fresh point read of the deal.
func (c *Controller) Edit(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Identity == nil {
		c.surface.ShowNotice(NoticeSignInToManage)
		return
	}
	deal, err := c.deals.Get(ctx, c.state.Identity, id)
	if err != nil {
		c.fail("edit", err, NoticeGetFailed)
		return
	}
	c.state.EditTarget = deal.ID
	c.surface.OpenEditor(view.NewEditForm(deal))
}

// Update saves the deal currently in the editor. Without an open editor it
// does nothing.
func (c *Controller) Update(ctx context.Context, name, stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Identity == nil {
		c.surface.ShowNotice(NoticeSignInToManage)
		return
	}
	if c.state.EditTarget == "" {
		c.logger.Debug("update without edit target ignored")
		return
	}
	_, err := c.deals.Update(ctx, c.state.Identity, c.state.EditTarget, models.DealCandidate{Name: name, Stage: stage})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.state.EditTarget = ""
			c.surface.CloseEditor()
		}
		c.fail("update", err, NoticeUpdateFailed)
		return
	}
	c.state.EditTarget = ""
	c.surface.CloseEditor()
}

func (c *Controller) Delete(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Identity == nil {
		c.surface.ShowNotice(NoticeSignInToManage)
		return
	}
	if err := c.deals.Delete(ctx, c.state.Identity, id); err != nil {
		c.fail("delete", err, NoticeDeleteFailed)
	}
}

func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.EditTarget = ""
	c.surface.CloseEditor()
}

// Close drops the subscription; the page is gone.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bumpGeneration()
	c.cancelSubscription()
}

func (c *Controller) bumpGeneration() uint64 {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.gen++
	return c.gen
}

func (c *Controller) cancelSubscription() {
	if c.unsubscribe == nil {
		return
	}
	c.unsubscribe()
	c.unsubscribe = nil
}

func (c *Controller) render(gen uint64, deals []*models.Deal) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if gen != c.gen {
		return
	}
	c.surface.ShowDeals(view.Render(deals))
}

func (c *Controller) fail(op string, err error, generic string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.surface.ShowNotice(verr.Error())
	case errors.Is(err, services.ErrNotFound):
		c.surface.ShowNotice(NoticeDealGone)
	default:
		c.logger.Error("deal operation failed", zap.String("operation", op), zap.Error(err))
		c.surface.ShowNotice(generic)
	}
}
