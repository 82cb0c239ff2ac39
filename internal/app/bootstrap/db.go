// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/therapytrack/internal/app/store/audit"
	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	therapysessionstore "github.com/dalemusser/therapytrack/internal/app/store/therapysessions"
	"github.com/dalemusser/therapytrack/internal/app/system/activation"
	"github.com/dalemusser/therapytrack/internal/app/system/auditlog"
	"github.com/dalemusser/therapytrack/internal/app/system/indexes"
	"github.com/dalemusser/therapytrack/internal/app/system/ratelimit"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/dalemusser/therapytrack/internal/app/system/timeouts"
	"github.com/dalemusser/therapytrack/internal/app/system/txn"
	"github.com/dalemusser/therapytrack/internal/app/system/validators"
	"github.com/dalemusser/therapytrack/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and builds the stores and services that
// depend on it.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "mongo connect")
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize))
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("mongo ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	return buildDeps(client, db, appCfg, logger), nil
}

// buildDeps wires the stores, the activation manager, the scheduling service
// and the reconciler onto db.
func buildDeps(client *mongo.Client, db *mongo.Database, appCfg AppConfig, logger *zap.Logger) DBDeps {
	folders := folderstore.New(db).WithLogger(logger)
	sessions := therapysessionstore.New(db)
	auditStore := audit.New(db)
	manager := activation.NewManager(folders, logger)

	svc := scheduling.NewService(folders, sessions, manager, logger)
	svc.BatchSize = appCfg.BatchSize
	svc.Workers = appCfg.PersistWorkers
	svc.Tx = txn.Runner(db, logger)
	svc.Audit = auditlog.New(auditStore, logger, auditlog.Config{
		Schedule:    appCfg.AuditLogSchedule,
		Maintenance: appCfg.AuditLogMaintenance,
	})

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Folders:       folders,
		Sessions:      sessions,
		Audit:         auditStore,
		Activation:    manager,
		Scheduling:    svc,
	}
	if appCfg.CreateRateLimit > 0 {
		deps.CreateLimiter = ratelimit.New(appCfg.CreateRateLimit, appCfg.CreateRateWindow)
	}
	if appCfg.ReconcileInterval > 0 {
		deps.Reconciler = workers.NewFolderReconciler(svc, logger,
			appCfg.ReconcileInterval, timeouts.Long(), int64(appCfg.ReconcileLimit))
	}
	return deps
}

// EnsureSchema creates indexes and collection validators. Both are
// idempotent and run on every start.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "ensure schema")
	defer cancel()

	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return fmt.Errorf("ensure validators: %w", err)
	}
	logger.Info("schema ensured")
	return nil
}
