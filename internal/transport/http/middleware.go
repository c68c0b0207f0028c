package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	headerUserID         = "X-User-ID"
	headerIdempotencyKey = "Idempotency-Key"

	userIDContextKey = "user_id"

	idempotencyTTL = 24 * time.Hour
)

// identityMiddleware извлекает идентификатор пользователя из заголовка.
// Аутентификация выполняется выше по стеку (gateway); сервис доверяет заголовку.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(headerUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

// bodyCaptureWriter дублирует тело ответа в буфер, чтобы его можно было
// сохранить для повтора идемпотентного запроса.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// idempotencyMiddleware защищает мутирующий endpoint от повторной обработки.
// Ключ обязателен; повтор с тем же ключом и телом возвращает сохранённый
// ответ, повтор во время обработки — 409, повтор с другим телом — 422.
func idempotencyMiddleware(repo domain.IdempotencyRepository, logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(headerIdempotencyKey)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key header is required"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := sha256.Sum256(append([]byte(currentUserID(c)+"\n"), body...))
		requestHash := hex.EncodeToString(hash[:])

		record, err := repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrIdempotencyHashMismatch):
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency key reused with different request"})
				return
			case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
				if record.Status == domain.IdempotencyStatusProcessing {
					c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request is already being processed"})
					return
				}
				// Повтор завершённого запроса: отдаём сохранённый ответ.
				c.Data(record.HTTPStatus, "application/json", record.ResponseBody)
				c.Abort()
				return
			default:
				logger.WithError(err).Warn("idempotency check failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		responseBody := writer.body.Bytes()

		if status >= 200 && status < 300 {
			if err := repo.MarkDone(key, responseBody, status); err != nil {
				logger.WithError(err).WithField("idempotency_key", key).Warn("failed to mark idempotency key done")
			}
			return
		}
		if err := repo.MarkFailed(key, responseBody, status); err != nil {
			logger.WithError(err).WithField("idempotency_key", key).Warn("failed to mark idempotency key failed")
		}
	}
}
