package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
	"dealdesk/internal/services"
)

// Notices the page can be sent to with ?notice=<key>.
var pageNotices = map[string]string{
	"signin_failed": "Sign-in failed. Please try again.",
	"signed_out":    "Signed out.",
}

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Allowed []models.Stage `json:"allowed,omitempty"`
}

func identityOrAbort(c *gin.Context) (*models.Identity, bool) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "sign in required"})
		return nil, false
	}
	return identity, true
}

// respondError maps service errors to statuses. Store failures are logged and
// answered without their cause.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error(), Code: string(verr.Code), Allowed: verr.Allowed})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "deal not found"})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "sign in required"})
	default:
		logger.Error("deal operation failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
