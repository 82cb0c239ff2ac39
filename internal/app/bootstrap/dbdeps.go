// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/therapytrack/internal/app/store/audit"
	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	therapysessionstore "github.com/dalemusser/therapytrack/internal/app/store/therapysessions"
	"github.com/dalemusser/therapytrack/internal/app/system/activation"
	"github.com/dalemusser/therapytrack/internal/app/system/ratelimit"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/dalemusser/therapytrack/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// The stores and services are built once in ConnectDB and shared by the
// HTTP handlers and the background reconciler.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Folders    *folderstore.Store
	Sessions   *therapysessionstore.Store
	Audit      *audit.Store
	Activation *activation.Manager
	Scheduling *scheduling.Service
	Reconciler *workers.FolderReconciler // nil when reconcile_interval is 0

	CreateLimiter *ratelimit.Limiter // nil when create_rate_limit is 0
}
