package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/watchdeck/user-api/internal/app"
	"github.com/watchdeck/user-api/internal/pkg/config"
	"github.com/watchdeck/user-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "userapi",
		Short:        "User accounts and watch lists over HTTP",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newCreateAdminCmd())
	return root
}

// bootstrap loads configuration, initialises the logger and wires the app.
func bootstrap(ctx context.Context) (*app.App, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "userapi",
	})

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, log, err
	}
	return a, log, nil
}

func newServeCmd() *cobra.Command {
	var swagger bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					log.Error().Err(err).Msg("close store")
				}
			}()

			if err := a.EnsureBootstrapAdmin(ctx); err != nil {
				return err
			}

			e := a.Router(app.RouterOptions{
				Registerer: prometheus.DefaultRegisterer,
				Gatherer:   prometheus.DefaultGatherer,
				Swagger:    swaggerEnabled(cmd, swagger, a.Config),
			})

			srv := &http.Server{
				Addr:         ":" + a.Config.Port,
				Handler:      e,
				ReadTimeout:  a.Config.HTTP.ReadTimeout,
				WriteTimeout: a.Config.HTTP.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("driver", a.Config.StoreDriver).Msg("server started")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server: %w", err)
				}
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
			}

			log.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&swagger, "swagger", true, "Serve API docs under /swagger/ (off by default when ENV=production)")
	return cmd
}

// swaggerEnabled honours an explicit --swagger and otherwise hides the docs
// in production.
func swaggerEnabled(cmd *cobra.Command, flag bool, cfg *config.Config) bool {
	if cmd.Flags().Changed("swagger") {
		return flag
	}
	return !cfg.IsProduction()
}

func newCreateAdminCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user with the ADMIN role directly in the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			a, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			if a.Config.StoreDriver == config.DriverMemory {
				log.Warn().Msg("memory store selected: the admin is lost when this command exits; set BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD for serve instead")
			}

			admin, err := a.CreateAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %s)\n", admin.Username, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Admin username")
	cmd.Flags().StringVar(&password, "password", "", "Admin password")
	return cmd
}
