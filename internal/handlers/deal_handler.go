package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dealdesk/internal/models"
	"dealdesk/internal/pdf"
	"dealdesk/internal/services"
)

type DealHandler struct {
	Service *services.DealService
	PDF     pdf.Generator
	logger  *zap.Logger
}

func NewDealHandler(service *services.DealService, gen pdf.Generator, logger *zap.Logger) *DealHandler {
	return &DealHandler{Service: service, PDF: gen, logger: logger.Named("api")}
}

// @Summary      Create a deal
// @Tags         Deals
// @Accept       json
// @Produce      json
// @Param        deal  body      models.DealCandidate  true  "Name and stage"
// @Success      201   {object}  models.Deal
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Security     BearerAuth
// @Router       /api/deals [post]
func (h *DealHandler) Create(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var body models.DealCandidate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	deal, err := h.Service.Create(c.Request.Context(), identity, body)
	if err != nil {
		respondError(c, h.logger, "create", err)
		return
	}
	c.JSON(http.StatusCreated, deal)
}

// @Summary      List the caller's deals
// @Tags         Deals
// @Produce      json
// @Success      200  {array}   models.Deal
// @Failure      401  {object}  errorResponse
// @Security     BearerAuth
// @Router       /api/deals [get]
func (h *DealHandler) List(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	deals, err := h.Service.List(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, "list", err)
		return
	}
	if deals == nil {
		deals = []*models.Deal{}
	}
	c.JSON(http.StatusOK, deals)
}

// @Summary      Get a deal
// @Tags         Deals
// @Produce      json
// @Param        id   path      string  true  "Deal ID"
// @Success      200  {object}  models.Deal
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /api/deals/{id} [get]
func (h *DealHandler) GetByID(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	deal, err := h.Service.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get", err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// @Summary      Update name and stage of a deal
// @Tags         Deals
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Deal ID"
// @Param        deal  body      models.DealCandidate  true  "Name and stage"
// @Success      200   {object}  models.Deal
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Security     BearerAuth
// @Router       /api/deals/{id} [put]
func (h *DealHandler) Update(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	var body models.DealCandidate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	deal, err := h.Service.Update(c.Request.Context(), identity, c.Param("id"), body)
	if err != nil {
		respondError(c, h.logger, "update", err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// @Summary      Delete a deal
// @Tags         Deals
// @Param        id   path  string  true  "Deal ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /api/deals/{id} [delete]
func (h *DealHandler) Delete(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondError(c, h.logger, "delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Pipeline stages
// @Tags         Deals
// @Produce      json
// @Success      200  {array}  string
// @Router       /api/stages [get]
func (h *DealHandler) Stages(c *gin.Context) {
	c.JSON(http.StatusOK, models.Stages())
}

// @Summary      Export the caller's deals as PDF
// @Tags         Deals
// @Produce      application/pdf
// @Success      200
// @Failure      401  {object}  errorResponse
// @Security     BearerAuth
// @Router       /deals/export.pdf [get]
func (h *DealHandler) ExportPDF(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}
	deals, err := h.Service.List(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, "export", err)
		return
	}
	var buf bytes.Buffer
	if err := h.PDF.GenerateDealList(&buf, pdf.DealListData{Owner: identity, Deals: deals}); err != nil {
		h.logger.Error("could not generate pdf", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="deals.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
