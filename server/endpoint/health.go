// Package endpoint holds the operational routes shared by both binaries.
package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/version"
)

// HealthChecker reports the health of the registered components.
type HealthChecker func(ctx context.Context) []component.Health

// Health answers 200 {"status":"ok", ...} when every component is healthy
// and 503 otherwise.
func Health(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var components []component.Health
		if checker != nil {
			components = checker(c.Request.Context())
		}
		h := observability.Aggregate(service, version.Version, components)
		status := http.StatusOK
		if !h.Up() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, h)
	}
}
