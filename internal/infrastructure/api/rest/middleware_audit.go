package rest

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// AuditMiddleware records every mutating planning request with its
// payload, giving support a trail of who moved what and when.
type AuditMiddleware struct {
	logger *logger.Logger
}

// NewAuditMiddleware creates an AuditMiddleware.
func NewAuditMiddleware(log *logger.Logger) *AuditMiddleware {
	return &AuditMiddleware{logger: log}
}

// maxAuditedBody caps how much of a request body lands in the log.
const maxAuditedBody = 4 << 10

// RecordEdit logs the request body and outcome of mutating requests.
func (m *AuditMiddleware) RecordEdit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" {
			c.Next()
			return
		}

		var requestBody string
		if c.Request.Body != nil {
			bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAuditedBody))
			if err == nil {
				requestBody = string(bodyBytes)
				c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), c.Request.Body))
			}
		}

		c.Next()

		args := []any{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"body", requestBody,
		}
		if state := SessionState(c); state != nil {
			args = append(args, "database", state.DatabaseID, "planning_id", state.PlanningID)
		}
		m.logger.Info("planning edit", args...)
	}
}
