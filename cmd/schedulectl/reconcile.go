package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/store/audit"
	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	therapysessionstore "github.com/dalemusser/therapytrack/internal/app/store/therapysessions"
	"github.com/dalemusser/therapytrack/internal/app/system/activation"
	"github.com/dalemusser/therapytrack/internal/app/system/auditlog"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func newReconcileCmd() *cobra.Command {
	var (
		uri        string
		dbName     string
		limit      int64
		dryRun     bool
		timeout    time.Duration
		staleAfter time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete sessions and folders left behind by failed schedule creations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uri == "" {
				uri = os.Getenv("THERAPYTRACK_MONGO_URI")
			}
			if uri == "" {
				return fmt.Errorf("--mongo-uri or THERAPYTRACK_MONGO_URI is required")
			}
			if err := wafflemongo.ValidateURI(uri); err != nil {
				return fmt.Errorf("mongo uri: %w", err)
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			if staleAfter < 0 {
				return fmt.Errorf("--stale-after must not be negative")
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
			if err != nil {
				return fmt.Errorf("mongo connect: %w", err)
			}
			defer func() { _ = client.Disconnect(context.Background()) }()
			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				return fmt.Errorf("mongo ping: %w", err)
			}

			db := client.Database(dbName)
			folders := folderstore.New(db).WithLogger(logger)
			out := cmd.OutOrStdout()

			svc := scheduling.NewService(folders, therapysessionstore.New(db), activation.NewManager(folders, logger), logger)
			svc.StaleAfter = staleAfter

			if dryRun {
				pending, err := folders.ListIncomplete(ctx, svc.StaleBefore(), limit)
				if err != nil {
					return err
				}
				for _, f := range pending {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", f.ID.Hex(), f.Status, f.CreationID, f.Name)
				}
				_, err = fmt.Fprintf(out, "%d folders to repair\n", len(pending))
				return err
			}

			svc.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
				Schedule:    "all",
				Maintenance: "all",
			})

			res, err := svc.RepairIncomplete(ctx, limit)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "found %d, repaired %d, failed %d\n", res.Found, res.Repaired, res.Failed)
			if err == nil && res.Failed > 0 {
				err = fmt.Errorf("%d folders could not be repaired", res.Failed)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&uri, "mongo-uri", "", "MongoDB URI (defaults to $THERAPYTRACK_MONGO_URI)")
	cmd.Flags().StringVar(&dbName, "db", "therapytrack", "Database name")
	cmd.Flags().Int64Var(&limit, "limit", 100, "Maximum folders to repair in this run")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List incomplete folders without changing anything")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "Age after which a folder still being created counts as abandoned (0 uses the batch plus cleanup timeout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline for the run")
	return cmd
}
