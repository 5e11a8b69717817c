package cli

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"skmf.evalgo.org/api"
	"skmf.evalgo.org/common"
	"skmf.evalgo.org/config"
	skmfhttp "skmf.evalgo.org/http"
	"skmf.evalgo.org/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		Long: `Starts the HTTP API. Besides the authenticated /api routes the server
exposes /healthz, which checks the SPARQL endpoint and redis when
configured, and /metrics for prometheus.

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if err := config.ValidateServe(cfg); err != nil {
				return err
			}
			return runApp(cmd, func(ctx context.Context, a *app) error {
				return a.serve(ctx)
			})
		},
	}
}

func (a *app) serverConfig() skmfhttp.ServerConfig {
	sc := skmfhttp.DefaultServerConfig()
	sc.Address = a.cfg.Server.Address()
	sc.Debug = a.cfg.Server.Debug
	if a.cfg.Server.ReadTimeout > 0 {
		sc.ReadTimeout = a.cfg.Server.ReadTimeout
	}
	if a.cfg.Server.WriteTimeout > 0 {
		sc.WriteTimeout = a.cfg.Server.WriteTimeout
	}
	if a.cfg.Server.ShutdownTimeout > 0 {
		sc.ShutdownTimeout = a.cfg.Server.ShutdownTimeout
	}
	if len(a.cfg.Security.AllowedOrigins) > 0 {
		sc.AllowedOrigins = a.cfg.Security.AllowedOrigins
	}
	sc.RateLimit = float64(a.cfg.Security.RateLimit)
	return sc
}

func (a *app) healthChecks() map[string]skmfhttp.HealthCheck {
	checks := map[string]skmfhttp.HealthCheck{
		"sparql": a.sparqlCheck,
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

// setup registers every route on e.
func (a *app) setup(e *echo.Echo) error {
	skmfhttp.RegisterOperational(e, a.cfg.Service.Name, version.GetVersion(), a.healthChecks())
	api.SetupRoutes(e, api.NewHandlers(a.auth, a.client))
	return nil
}

func (a *app) serve(ctx context.Context) error {
	a.logger.WithFields(map[string]interface{}{
		"namespace":       a.cfg.Namespace,
		"sparql_user":     a.cfg.SPARQL.Username,
		"sparql_password": common.MaskSecret(a.cfg.SPARQL.Password),
		"jwt_secret":      common.MaskSecret(a.cfg.Security.JWTSecret),
	}).Info("starting skmf")
	return skmfhttp.RunServer(ctx, a.serverConfig(), a.logger, a.setup)
}
