package http

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// NewRouter собирает маршруты витрины. Все маршруты требуют идентификации
// пользователя; checkout дополнительно защищён ключом идемпотентности.
func NewRouter(h *Handler, idempotency domain.IdempotencyRepository, logger *log.Entry) *gin.Engine {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	authed := router.Group("/", identityMiddleware())
	{
		authed.GET("/cart", h.getCart)
		authed.PUT("/cart", h.saveCart)
		authed.DELETE("/cart", h.deleteCart)

		authed.POST("/checkout", idempotencyMiddleware(idempotency, logger), h.postCheckout)

		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.GET("/orders/:id/timeline", h.getOrderTimeline)
		authed.POST("/orders/:id/confirm-payment", h.confirmPayment)
		authed.POST("/orders/:id/ship", h.shipOrder)
		authed.POST("/orders/:id/deliver", h.deliverOrder)
		authed.POST("/orders/:id/cancel", h.cancelOrder)

		authed.DELETE("/account", h.deleteAccount)
	}

	return router
}

// requestLogger пишет структурированный лог по каждому запросу.
func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		})
		if c.Writer.Status() >= 500 {
			entry.Error("request completed")
			return
		}
		entry.Debug("request completed")
	}
}
