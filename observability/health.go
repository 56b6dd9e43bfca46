package observability

import "github.com/kbukum/scribe/component"

// Aggregate health values.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// ServiceHealth is the aggregate health report served on /health.
type ServiceHealth struct {
	Service    string             `json:"service"`
	Status     string             `json:"status"`
	Version    string             `json:"version,omitempty"`
	Components []component.Health `json:"components,omitempty"`
}

// Aggregate reports "ok" when every component is healthy and "unavailable"
// otherwise.
func Aggregate(service, version string, components []component.Health) *ServiceHealth {
	h := &ServiceHealth{Service: service, Status: StatusOK, Version: version, Components: components}
	for _, c := range components {
		if c.Status != component.StatusHealthy {
			h.Status = StatusUnavailable
		}
	}
	return h
}

// Up reports whether the aggregate status is healthy.
func (h *ServiceHealth) Up() bool { return h.Status == StatusOK }
