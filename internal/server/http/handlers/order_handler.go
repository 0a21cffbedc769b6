package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/server/http/dto"
	"github.com/polkiloo/marketpay/internal/usecase"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Checkout handles POST /api/orders.
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID := CurrentUserID(c)

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	input := usecase.CheckoutInput{
		Tax:        req.Tax,
		Shipping:   req.Shipping,
		ServiceFee: req.ServiceFee,
		Items:      make([]usecase.CheckoutItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, usecase.CheckoutItem{
			SupplierID:    item.SupplierID,
			ProductRef:    item.ProductRef,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			SupplierCost:  item.SupplierCost,
			CommissionPct: item.CommissionPct,
		})
	}

	order, err := h.facade.Checkout(c.Request.Context(), userID, input)
	if err != nil {
		if errors.Is(err, domainErrors.ErrValidation) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(*order, true))
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	userID := CurrentUserID(c)
	orders, err := h.facade.Orders(c.Request.Context(), userID)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o, false))
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	userID := CurrentUserID(c)
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	order, err := h.facade.Order(c.Request.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(*order, true))
}

func toOrderResponse(order model.Order, withItems bool) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:        order.ID,
		Status:    string(order.Status),
		Subtotal:  order.Subtotal,
		Tax:       order.Tax,
		Shipping:  order.Shipping,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}
	if withItems {
		resp.Items = make([]dto.OrderItemResponse, 0, len(order.Items))
		for _, item := range order.Items {
			resp.Items = append(resp.Items, dto.OrderItemResponse{
				SupplierID: item.SupplierID,
				ProductRef: item.ProductRef,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
			})
		}
	}
	return resp
}
