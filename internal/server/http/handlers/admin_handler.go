package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/server/http/dto"
)

// AdminHandler exposes operator endpoints: profit reporting, manual approval
// and refunds.
type AdminHandler struct {
	facade AdminFacade
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// Profit handles GET /api/admin/profit?mode=&from=&to=.
func (h *AdminHandler) Profit(c *gin.Context) {
	mode := model.ProfitMode(c.DefaultQuery("mode", string(model.ProfitModeCashflow)))

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
		return
	}

	report, err := h.facade.Profit(c.Request.Context(), mode, from, to)
	if err != nil {
		if errors.Is(err, domainErrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, dto.ProfitResponse{
		Mode:         string(mode),
		From:         from.Format(time.RFC3339),
		To:           to.Format(time.RFC3339),
		RevenuePaid:  report.RevenuePaid,
		Refunds:      report.Refunds,
		RevenueNet:   report.RevenueNet,
		GatewayFees:  report.GatewayFees,
		TaxCollected: report.TaxCollected,
		CommsNet:     report.CommsNet,
		MarginNet:    report.MarginNet,
		GrossProfit:  report.GrossProfit,
	})
}

// Approve handles POST /api/admin/payments/:reference/approve.
func (h *AdminHandler) Approve(c *gin.Context) {
	payment, err := h.facade.ApprovePayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// Refund handles POST /api/admin/payments/:reference/refund.
func (h *AdminHandler) Refund(c *gin.Context) {
	payment, err := h.facade.RefundPayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *AdminHandler) renderPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, domainErrors.ErrNotPending), errors.Is(err, domainErrors.ErrValidation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusInternalServerError)
	}
}
