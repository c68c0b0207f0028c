// Package http содержит HTTP-интерфейс витрины на gin.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/account"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
)

// Handler связывает HTTP-маршруты с сервисами витрины.
type Handler struct {
	validator    *cart.Validator
	synchronizer *cart.Synchronizer
	checkout     *checkout.Orchestrator
	lifecycle    *order.Lifecycle
	cleaner      *account.Cleaner
	logger       *log.Entry
}

// NewHandler создаёт HTTP handler витрины.
func NewHandler(
	validator *cart.Validator,
	synchronizer *cart.Synchronizer,
	orchestrator *checkout.Orchestrator,
	lifecycle *order.Lifecycle,
	cleaner *account.Cleaner,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Handler{
		validator:    validator,
		synchronizer: synchronizer,
		checkout:     orchestrator,
		lifecycle:    lifecycle,
		cleaner:      cleaner,
		logger:       logger.WithField("component", "http"),
	}
}

// getCart возвращает корзину после сверки с каталогом.
// Отсутствие корзины — 204: нечего показывать, но это не ошибка.
func (h *Handler) getCart(c *gin.Context) {
	view, err := h.validator.GetAndValidateCart(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(view))
}

// saveCart перезаписывает корзину клиентским состоянием.
func (h *Handler) saveCart(c *gin.Context) {
	var req saveCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]cart.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, cart.LineInput{ProductID: line.ProductID, Qty: line.Qty})
	}

	view, err := h.synchronizer.SaveCart(c.Request.Context(), currentUserID(c), lines)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(view))
}

// deleteCart удаляет корзину пользователя.
func (h *Handler) deleteCart(c *gin.Context) {
	if err := h.synchronizer.DeleteCart(c.Request.Context(), currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// postCheckout оформляет заказ из корзины.
func (h *Handler) postCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.checkout.Checkout(c.Request.Context(), currentUserID(c), checkout.Request{
		AddressID:       req.AddressID,
		PaymentMethodID: req.PaymentMethodID,
		ShippingMinor:   req.ShippingMinor,
		DiscountMinor:   req.DiscountMinor,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(created))
}

// listOrders возвращает заказы пользователя, новые первыми.
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.lifecycle.ListByUser(c.Request.Context(), currentUserID(c), 0)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, result)
}

// getOrder возвращает заказ пользователя. Чужой заказ неотличим от
// несуществующего.
func (h *Handler) getOrder(c *gin.Context) {
	found, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if found.UserID != currentUserID(c) {
		h.respondError(c, domain.ErrOrderNotFound)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(found))
}

// getOrderTimeline возвращает хронологию событий заказа.
func (h *Handler) getOrderTimeline(c *gin.Context) {
	found, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if found.UserID != currentUserID(c) {
		h.respondError(c, domain.ErrOrderNotFound)
		return
	}

	events, err := h.lifecycle.Timeline(found.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	c.JSON(http.StatusOK, result)
}

// confirmPayment переводит заказ в статус paid.
func (h *Handler) confirmPayment(c *gin.Context) {
	updated, err := h.lifecycle.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

// shipOrder переводит заказ в статус shipped с трек-номером.
func (h *Handler) shipOrder(c *gin.Context) {
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.lifecycle.MarkAsShipped(c.Request.Context(), c.Param("id"), req.TrackingCode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

// deliverOrder переводит заказ в статус delivered.
func (h *Handler) deliverOrder(c *gin.Context) {
	updated, err := h.lifecycle.MarkAsDelivered(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

// cancelOrder отменяет заказ с возвратом резервов.
func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	updated, err := h.lifecycle.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

// deleteAccount удаляет аккаунт пользователя по явной процедуре очистки.
func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.cleaner.PurgeAccount(c.Request.Context(), currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError транслирует доменные ошибки в HTTP-статусы.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsOwnershipViolation(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInsufficientStock),
		domain.IsVersionConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrAmountNegative):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
