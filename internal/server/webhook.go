package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pillarworks/meridian/internal/payment/signature"
	"go.uber.org/zap"
)

const (
	// maxWebhookBody bounds the raw body we are willing to capture.
	maxWebhookBody = 1 << 20

	// processBudget keeps synchronous processing inside the processor's
	// 3-second acknowledgment deadline; anything slower is left pending for
	// the replay worker.
	processBudget = 2500 * time.Millisecond
)

// PaymentWebhook ingests a processor notification. The raw event is made
// durable before anything else; after that the response is always 200
// {"received":true} so the processor never retries an event we already hold.
// The only 5xx is a capture failure, where retrying is the correct behavior.
func (s *Server) PaymentWebhook(c *gin.Context) {
	start := time.Now()

	if !s.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": gin.H{"code": "rate_limited"}})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"received": false})
		return
	}

	raw, err := s.processor.Capture(c.Request.Context(), body, c.GetHeader(signature.Header))
	if err != nil {
		s.log.Error("failed to capture webhook event", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"received": false})
		return
	}

	// Detached from the client connection: a disconnect must not abort
	// billing mutations mid-flight.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), processBudget)
	defer cancel()

	if err := s.processor.Process(ctx, raw); err != nil {
		// Row stays pending; the replay worker picks it up.
		s.log.Warn("synchronous processing failed, event left for replay",
			zap.String("event_id", raw.EventID),
			zap.Error(err),
		)
	}
	s.metrics.RecordOutcome(ctx, string(raw.Outcome), time.Since(start))

	c.JSON(http.StatusOK, gin.H{"received": true})
}
