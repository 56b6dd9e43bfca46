package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of infrastructure.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string
	// Start initializes and starts the component.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error
	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Healthy is shorthand for a healthy report.
func Healthy(name string) Health {
	return Health{Name: name, Status: StatusHealthy}
}

// Unhealthy is shorthand for an unhealthy report with a reason.
func Unhealthy(name, message string) Health {
	return Health{Name: name, Status: StatusUnhealthy, Message: message}
}
