// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/therapytrack/internal/app/features/auditlog"
	foldersfeature "github.com/dalemusser/therapytrack/internal/app/features/folders"
	healthfeature "github.com/dalemusser/therapytrack/internal/app/features/health"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The router serves JSON only:
//   - /folders   schedule creation, listing, activation, milestones, repair
//   - /sessions  session status changes
//   - /audit     schedule and maintenance audit events
//   - /health    database ping for load balancers and orchestrators
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Folders, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Schedules
	foldersHandler := foldersfeature.NewHandler(deps.Scheduling, deps.Folders, deps.Sessions, deps.Activation, logger)
	if deps.CreateLimiter != nil {
		foldersHandler.Limiter = deps.CreateLimiter
	}
	r.Mount("/folders", foldersfeature.Routes(foldersHandler))
	r.Mount("/sessions", foldersfeature.SessionRoutes(foldersHandler))

	// Audit trail
	auditHandler := auditlogfeature.NewHandler(deps.Audit, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler))

	return r, nil
}
