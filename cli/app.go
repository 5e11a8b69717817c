package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"skmf.evalgo.org/auth"
	"skmf.evalgo.org/common"
	"skmf.evalgo.org/config"
	"skmf.evalgo.org/db"
	"skmf.evalgo.org/sparql"
)

// app holds the services a command works with.
type app struct {
	cfg      *config.Config
	endpoint *db.SPARQLEndpoint
	client   *sparql.Client
	auth     *auth.Service
	redis    *db.RedisRevocationStore
	audit    *db.AuditStore
	logger   *common.ContextLogger
}

func loggerConfig(cfg config.LoggingConfig) common.LoggerConfig {
	lc := common.DefaultLoggerConfig()
	if cfg.Level != "" {
		lc.Level = common.LogLevel(strings.ToLower(cfg.Level))
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	return lc
}

// newApp connects the services described by cfg. Redis and the audit log
// are optional; without them revocations are kept in memory and no audit
// trail is written.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	common.Configure(loggerConfig(cfg.Logging))
	a := &app{cfg: cfg, logger: common.ServiceLogger("skmf")}

	endpoint, err := db.NewSPARQLEndpoint(cfg.QueryURL(), cfg.UpdateURL(), cfg.SPARQL.Timeout)
	if err != nil {
		return nil, err
	}
	endpoint.Username = cfg.SPARQL.Username
	endpoint.Password = cfg.SPARQL.Password
	a.endpoint = endpoint
	a.client = sparql.NewClient(sparql.NewFormatter(cfg.Namespace, nil), endpoint)

	var revoked auth.RevocationStore
	if cfg.Redis.Addr != "" {
		store, err := db.NewRedisRevocationStore(ctx, db.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.redis = store
		revoked = store
	}

	var audit auth.AuditLogger
	if cfg.Audit.Path != "" {
		path, err := homedir.Expand(cfg.Audit.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid audit path: %w", err)
		}
		store, err := db.OpenAuditStore(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.audit = store
		audit = store
	}

	authConfig := auth.DefaultConfig()
	authConfig.JWTSecret = cfg.Security.JWTSecret
	if cfg.Security.JWTExpiration > 0 {
		authConfig.JWTExpiration = cfg.Security.JWTExpiration
	}
	if cfg.Security.MinPasswordLength > 0 {
		authConfig.PasswordMinLength = cfg.Security.MinPasswordLength
	}
	authConfig.AuditEnabled = audit != nil
	a.auth = auth.NewService(authConfig, auth.NewSPARQLUserStore(a.client), revoked, audit)

	a.logger.WithFields(map[string]interface{}{
		"query":  cfg.QueryURL(),
		"update": cfg.UpdateURL(),
	}).Debug("sparql endpoint configured")
	return a, nil
}

// Close releases the optional stores.
func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	return errors.Join(errs...)
}

// runApp loads the services for cmd, calls fn and closes them again.
func runApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// sparqlCheck runs a trivial query against the endpoint.
func (a *app) sparqlCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := a.endpoint.ExecuteQuery(ctx, "SELECT ?s WHERE { ?s ?p ?o } LIMIT 1")
	return err
}

// readPassword prompts on a terminal without echo. Other inputs are read
// one line at a time.
func readPassword(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
