package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/dto/response"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/logger"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long keys are valid
	IdempotencyKeyTTL = 24 * time.Hour

	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo repository.IdempotencyRepository
	TTL  time.Duration
	Log  *zap.Logger
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes retried POSTs safe. The first request with a key
// reserves it; a repeat with the same body replays the stored response, a
// repeat with another body is rejected with 422, and a repeat while the
// first is still running gets 409. Failed requests release their key.
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = IdempotencyKeyTTL
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			response.BadRequest(c, "Idempotency-Key is too long")
			c.Abort()
			return
		}

		userIDValue, ok := c.Get(ContextUserID)
		if !ok {
			c.Next()
			return
		}
		userID, ok := userIDValue.(uuid.UUID)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx, config.Log)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "Could not read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		hash := hex.EncodeToString(sum[:])

		existing, err := config.Repo.GetByKey(ctx, key, userID)
		if err != nil {
			response.Error(c, apperror.NewInternalError("Failed to check idempotency key", err))
			c.Abort()
			return
		}
		if existing != nil && existing.IsExpired() {
			if err := config.Repo.Delete(ctx, existing.ID); err != nil {
				log.Warn("could not drop expired idempotency key", zap.Error(err))
			}
			existing = nil
		}
		if existing != nil {
			switch {
			case existing.RequestHash != hash:
				response.ErrorWithCode(c, http.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request")
			case existing.IsPending():
				response.ErrorWithCode(c, http.StatusConflict, "A request with this Idempotency-Key is still being processed")
			default:
				c.Header("X-Idempotency-Replayed", "true")
				c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
			}
			c.Abort()
			return
		}

		reservation := &entity.IdempotencyKey{
			Key:         key,
			UserID:      userID,
			Endpoint:    c.Request.Method + " " + c.FullPath(),
			RequestHash: hash,
			ExpiresAt:   time.Now().Add(ttl),
		}
		if err := config.Repo.Create(ctx, reservation); err != nil {
			if apperror.HasCode(err, http.StatusConflict) {
				response.ErrorWithCode(c, http.StatusConflict, "A request with this Idempotency-Key is still being processed")
			} else {
				response.Error(c, apperror.NewInternalError("Failed to reserve idempotency key", err))
			}
			c.Abort()
			return
		}

		blw := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			if err := config.Repo.Complete(ctx, reservation.ID, status, blw.body.String()); err != nil {
				log.Error("could not store idempotent response", zap.String("idempotency_key", key), zap.Error(err))
			}
			return
		}
		if err := config.Repo.Delete(ctx, reservation.ID); err != nil {
			log.Error("could not release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		}
	}
}
