package observability

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

// DatabaseHealthChecker verifies the run journal's BBolt database can open a
// read transaction.
type DatabaseHealthChecker struct {
	name string
	db   *bbolt.DB
}

// NewDatabaseHealthChecker creates a new database health checker
func NewDatabaseHealthChecker(name string, db *bbolt.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{name: name, db: db}
}

// Name returns the name of the health checker
func (dhc *DatabaseHealthChecker) Name() string {
	return dhc.name
}

// HealthCheck performs a database health check
func (dhc *DatabaseHealthChecker) HealthCheck(_ context.Context) error {
	if dhc.db == nil {
		return fmt.Errorf("database is nil")
	}
	return dhc.db.View(func(_ *bbolt.Tx) error {
		return nil
	})
}

// ReadinessCheck performs a database readiness check
func (dhc *DatabaseHealthChecker) ReadinessCheck(ctx context.Context) error {
	return dhc.HealthCheck(ctx)
}

// SessionHealthChecker reports the lifecycle session state. The shell itself
// stays healthy with the server stopped; only a failed session is unhealthy.
type SessionHealthChecker struct {
	name      string
	getStatus func() string
}

// NewSessionHealthChecker creates a checker over a session status getter.
func NewSessionHealthChecker(name string, getStatus func() string) *SessionHealthChecker {
	return &SessionHealthChecker{name: name, getStatus: getStatus}
}

// Name returns the name of the health checker
func (shc *SessionHealthChecker) Name() string {
	return shc.name
}

// HealthCheck reports failed sessions as unhealthy.
func (shc *SessionHealthChecker) HealthCheck(_ context.Context) error {
	if shc.getStatus == nil {
		return fmt.Errorf("getStatus function is nil")
	}
	if status := shc.getStatus(); status == "failed" {
		return fmt.Errorf("server session is in failed state")
	}
	return nil
}

// ReadinessCheck mirrors HealthCheck: a stopped server does not make the
// control plane unready.
func (shc *SessionHealthChecker) ReadinessCheck(ctx context.Context) error {
	return shc.HealthCheck(ctx)
}

// ComponentHealthChecker is a generic checker for components with a simple
// boolean status.
type ComponentHealthChecker struct {
	name      string
	isHealthy func() bool
	isReady   func() bool
}

// NewComponentHealthChecker creates a new component health checker
func NewComponentHealthChecker(name string, isHealthy, isReady func() bool) *ComponentHealthChecker {
	return &ComponentHealthChecker{
		name:      name,
		isHealthy: isHealthy,
		isReady:   isReady,
	}
}

// Name returns the name of the health checker
func (chc *ComponentHealthChecker) Name() string {
	return chc.name
}

// HealthCheck performs a component health check
func (chc *ComponentHealthChecker) HealthCheck(_ context.Context) error {
	if chc.isHealthy == nil {
		return fmt.Errorf("isHealthy function is nil")
	}
	if !chc.isHealthy() {
		return fmt.Errorf("component is not healthy")
	}
	return nil
}

// ReadinessCheck performs a component readiness check
func (chc *ComponentHealthChecker) ReadinessCheck(_ context.Context) error {
	if chc.isReady == nil {
		return fmt.Errorf("isReady function is nil")
	}
	if !chc.isReady() {
		return fmt.Errorf("component is not ready")
	}
	return nil
}

var _ HealthChecker = (*DatabaseHealthChecker)(nil)
var _ ReadinessChecker = (*DatabaseHealthChecker)(nil)
var _ HealthChecker = (*SessionHealthChecker)(nil)
var _ ReadinessChecker = (*SessionHealthChecker)(nil)
var _ HealthChecker = (*ComponentHealthChecker)(nil)
var _ ReadinessChecker = (*ComponentHealthChecker)(nil)
