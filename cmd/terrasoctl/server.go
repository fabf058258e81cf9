package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/techmatters/terraso-go/pkg/app"
	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/db"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/server"
	"github.com/techmatters/terraso-go/pkg/server/endpoints"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Terraso API server",
	Long: `Run the Terraso API server.

The server requires DATABASE_URL and a JWT secret (jwt_secret in terraso.yml
or TERRASO_JWT_SECRET).

By default, database migrations are run on startup. Use --no-migrate to skip.
SIGINT and SIGTERM drain in-flight requests before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		config.Set(cfg)

		logCfg := logging.DefaultConfig()
		logCfg.Level, logCfg.Format = cfg.LogLevel, cfg.LogFormat
		logging.Init(logCfg)
		audit.SetEnabled(cfg.IsAuditEnabled())

		if db.URL() == "" {
			return errors.New("DATABASE_URL environment variable is required")
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			logging.Info().Msg("running database migrations")
			if err := runMigrations(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}

		database, err := db.Connect(db.Config{MaxOpenConns: 20, ConnMaxLifetime: 30 * time.Minute})
		if err != nil {
			return err
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, hub, err := app.Build(ctx, cfg, database, host, port)
		if err != nil {
			return err
		}
		endpoints.RegisterAll(s)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return hub.Run(gctx) })
		g.Go(func() error {
			err := config.Watch(gctx, func(c *config.TerrasoConfig) {
				logging.SetLevel(c.LogLevel)
			})
			if err != nil {
				// A missing config directory is not fatal.
				logging.Warn().Err(err).Msg("config watcher stopped")
			}
			return nil
		})
		g.Go(func() error {
			logging.Info().Str("version", server.Version).Msgf("running server at http://%s:%s", host, port)
			if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			logging.Info().Msg("shutting down")
			return s.Shutdown(shutdownCtx)
		})
		return shutdownErr(g.Wait())
	},
}

// shutdownErr drops the cancellation that a signal-triggered drain leaves
// behind so a clean stop exits 0.
func shutdownErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}
