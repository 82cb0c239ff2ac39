// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/system/batch"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for therapytrack.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, batch_size, etc.
//   - Environment variables: THERAPYTRACK_MONGO_URI, THERAPYTRACK_BATCH_SIZE, etc.
//   - Command-line flags: --mongo_uri, --batch_size, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "therapytrack", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Session persistence
	{Name: "batch_size", Default: batch.DefaultBatchSize, Desc: "Sessions per progress report batch"},
	{Name: "persist_workers", Default: scheduling.DefaultWorkers, Desc: "Concurrent session writes per schedule creation"},

	// Reconciliation
	{Name: "reconcile_interval", Default: "5m", Desc: "How often incomplete folders are repaired (0 disables)"},
	{Name: "reconcile_limit", Default: 100, Desc: "Maximum folders repaired per sweep"},

	// Creation throttling
	{Name: "create_rate_limit", Default: 0, Desc: "Schedule creations allowed per owner per window (0 disables)"},
	{Name: "create_rate_window", Default: "1m", Desc: "Window for create_rate_limit"},

	// Timeouts
	{Name: "timeout_batch", Default: "60s", Desc: "Time budget for one schedule creation request"},

	// Audit logging settings
	{Name: "audit_log_schedule", Default: "all", Desc: "Schedule event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_maintenance", Default: "all", Desc: "Compensation and repair event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, THERAPYTRACK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "THERAPYTRACK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		BatchSize:      appValues.Int("batch_size"),
		PersistWorkers: appValues.Int("persist_workers"),

		ReconcileInterval: appValues.Duration("reconcile_interval", 5*time.Minute),
		ReconcileLimit:    appValues.Int("reconcile_limit"),

		CreateRateLimit:  appValues.Int("create_rate_limit"),
		CreateRateWindow: appValues.Duration("create_rate_window", time.Minute),

		TimeoutBatch: appValues.Duration("timeout_batch", 60*time.Second),

		AuditLogSchedule:    appValues.String("audit_log_schedule"),
		AuditLogMaintenance: appValues.String("audit_log_maintenance"),
	}

	return coreCfg, appCfg, nil
}

var auditSettings = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here so configuration errors surface before
// a connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if appCfg.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", appCfg.BatchSize)
	}
	if appCfg.PersistWorkers < 1 {
		return fmt.Errorf("persist_workers must be at least 1, got %d", appCfg.PersistWorkers)
	}
	if appCfg.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile_interval must not be negative")
	}
	if appCfg.ReconcileInterval > 0 && appCfg.ReconcileLimit < 1 {
		return fmt.Errorf("reconcile_limit must be at least 1 when the reconciler is enabled")
	}
	if appCfg.CreateRateLimit < 0 {
		return fmt.Errorf("create_rate_limit must not be negative")
	}
	if appCfg.CreateRateLimit > 0 && appCfg.CreateRateWindow <= 0 {
		return fmt.Errorf("create_rate_window must be positive when create_rate_limit is set")
	}
	if appCfg.TimeoutBatch <= 0 {
		return fmt.Errorf("timeout_batch must be positive")
	}
	if !auditSettings[appCfg.AuditLogSchedule] || !auditSettings[appCfg.AuditLogMaintenance] {
		return fmt.Errorf("audit log settings must be one of all, db, log, off")
	}
	return nil
}
