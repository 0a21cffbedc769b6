package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/server/http/dto"
	"github.com/polkiloo/marketpay/internal/usecase"
)

// PaymentHandler manages payment attempt endpoints.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Init handles POST /api/payments.
func (h *PaymentHandler) Init(c *gin.Context) {
	userID := CurrentUserID(c)

	var req dto.InitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	result, err := h.facade.InitPayment(c.Request.Context(), userID, req.OrderID, model.PaymentChannel(req.Channel))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrUnknownChannel):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrAlreadyPaid):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrValidation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, toAttemptResponse(result))
}

// Verify handles GET /api/payments/:reference/verify.
func (h *PaymentHandler) Verify(c *gin.Context) {
	userID := CurrentUserID(c)
	reference := c.Param("reference")

	payment, err := h.facade.VerifyPayment(c.Request.Context(), userID, reference)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrAmountMismatch), errors.Is(err, domainErrors.ErrReferenceMismatch):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func toAttemptResponse(result *usecase.AttemptResult) dto.PaymentResponse {
	resp := toPaymentResponse(result.Payment)
	resp.Resumed = result.Resumed
	resp.RedirectURL = result.RedirectURL
	if result.BankDetails != nil {
		resp.BankDetails = &dto.BankDetailsResponse{
			BankName:      result.BankDetails.BankName,
			AccountNumber: result.BankDetails.AccountNumber,
			AccountName:   result.BankDetails.AccountName,
			Reference:     result.BankDetails.Reference,
		}
	}
	return resp
}

func toPaymentResponse(payment *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		Reference: payment.Reference,
		OrderID:   payment.OrderID,
		Channel:   string(payment.Channel),
		Status:    string(payment.Status),
		Amount:    payment.Amount,
		PaidAt:    payment.PaidAt,
	}
}
