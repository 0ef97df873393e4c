package middleware

import (
	"taprealm/internal/logger"
	"taprealm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, echoed in the response header and
// attached to the request logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := service.WithRequestID(c.Request.Context(), id)
		ctx = logger.NewContext(ctx, logger.With("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
