package handlers

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dealdesk/internal/controller"
	"dealdesk/internal/metrics"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
	"dealdesk/internal/realtime"
	"dealdesk/internal/view"
)

const NoticeSlowDown = "Too many actions, slow down."

type pageData struct {
	IdentityLine string
	SignedIn     bool
	Providers    []Provider
	LocalEnabled bool
	Stages       []models.Stage
	Notice       string
}

// PageHandler serves the deals page and its live connection.
type PageHandler struct {
	deals    controller.DealService
	sessions *middleware.Sessions
	hub      *realtime.IdentityHub
	auth     *AuthHandler
	page     *template.Template
	upgrader *websocket.Upgrader
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
}

func NewPageHandler(
	deals controller.DealService,
	sessions *middleware.Sessions,
	hub *realtime.IdentityHub,
	auth *AuthHandler,
	page *template.Template,
	upgrader *websocket.Upgrader,
	intentsPerSecond float64,
	burst int,
	logger *zap.Logger,
) *PageHandler {
	limit := rate.Limit(intentsPerSecond)
	if intentsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &PageHandler{
		deals:    deals,
		sessions: sessions,
		hub:      hub,
		auth:     auth,
		page:     page,
		upgrader: upgrader,
		limit:    limit,
		burst:    burst,
		logger:   logger.Named("page"),
	}
}

// Index renders the page shell. Deals arrive over the live connection.
func (h *PageHandler) Index(c *gin.Context) {
	if _, err := h.sessions.ID(c.Writer, c.Request); err != nil {
		h.logger.Error("could not start session", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	identity := h.sessions.Identity(c.Request)
	data := pageData{
		IdentityLine: view.IdentityLine(identity),
		SignedIn:     identity != nil,
		Providers:    h.auth.Providers(),
		LocalEnabled: h.auth.LocalEnabled(),
		Stages:       models.Stages(),
		Notice:       pageNotices[c.Query("notice")],
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := h.page.Execute(c.Writer, data); err != nil {
		h.logger.Error("could not render page", zap.Error(err))
	}
}

// Live upgrades to a websocket and runs one controller for the page until
// the connection closes.
func (h *PageHandler) Live(c *gin.Context) {
	sid, err := h.sessions.ID(c.Writer, c.Request)
	if err != nil {
		h.logger.Error("could not start session", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	identity := h.sessions.Identity(c.Request)

	conn, err := realtime.Upgrade(h.upgrader, c.Writer, c.Request, h.logger)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	metrics.ConnectedPages.Inc()
	defer metrics.ConnectedPages.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	ctrl := controller.New(h.deals, conn, h.logger)
	stop := h.hub.OnIdentityChange(sid, identity, func(id *models.Identity) {
		ctrl.IdentityChanged(ctx, id)
	})
	defer func() {
		stop()
		ctrl.Close()
		cancel()
		_ = conn.Close()
	}()

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		in, err := conn.ReadIntent()
		if errors.Is(err, realtime.ErrMalformedIntent) {
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("page connection lost", zap.Error(err))
			}
			return
		}
		if !limiter.Allow() {
			conn.ShowNotice(NoticeSlowDown)
			continue
		}
		h.dispatch(ctx, ctrl, in)
	}
}

func (h *PageHandler) dispatch(ctx context.Context, ctrl *controller.Controller, in realtime.Intent) {
	switch in.Type {
	case realtime.IntentCreate:
		ctrl.Create(ctx, in.Name, in.Stage)
	case realtime.IntentEdit:
		ctrl.Edit(ctx, in.ID)
	case realtime.IntentUpdate:
		ctrl.Update(ctx, in.Name, in.Stage)
	case realtime.IntentDelete:
		ctrl.Delete(ctx, in.ID)
	case realtime.IntentCancelEdit:
		ctrl.CancelEdit()
	default:
		h.logger.Debug("unknown intent", zap.String("type", in.Type))
	}
}
