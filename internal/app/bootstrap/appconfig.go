// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig holds what is specific to the schedule service: the database,
// how session writes are batched and parallelized, and how often incomplete
// folders are swept.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in the pool
	MongoMinPoolSize uint64 // Connections kept warm

	// Session persistence
	BatchSize      int // Sessions per progress report batch
	PersistWorkers int // Concurrent session writes per creation

	// Background reconciliation of incomplete folders
	ReconcileInterval time.Duration // 0 disables the reconciler
	ReconcileLimit    int           // Folders repaired per sweep

	// Creation throttling per owner
	CreateRateLimit  int           // Creations allowed per window; 0 disables
	CreateRateWindow time.Duration // Window length

	// Timeouts
	TimeoutBatch time.Duration // Whole-request budget for schedule creation

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogSchedule    string
	AuditLogMaintenance string
}
