package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dealdesk/internal/app"
	"dealdesk/internal/config"
	"dealdesk/internal/models"
	"dealdesk/internal/repositories"
	"dealdesk/internal/services"
)

var (
	seedOwner string
	seedName  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the deals page, the API and the live connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx, cfg, logger)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver != config.DriverPostgres {
			return errors.Errorf("migrate needs the postgres driver, got %q", cfg.Database.Driver)
		}
		db, err := app.OpenDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := repositories.RunMigrations(cmd.Context(), db); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample deals for an owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver == config.DriverMemory {
			logger.Warn("seeding the in-memory store, the deals are gone when this command exits")
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		store, closeStore, err := app.OpenStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		owner := &models.Identity{ID: seedOwner, DisplayName: seedName}
		created := services.NewDealService(store, nil, logger).Seed(ctx, owner)
		for _, d := range created {
			logger.Info("seeded deal", zap.String("id", d.ID), zap.String("name", d.Name), zap.String("stage", string(d.Stage)))
		}
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:         "hash-password <password>",
	Short:       "Print a bcrypt hash for auth.local_accounts",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"config": "skip"},
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}
