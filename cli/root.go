// Package cli provides the skmf command-line interface. It wires the
// configuration, the SPARQL endpoint client, the auth service and the HTTP
// API together and exposes them as cobra subcommands.
//
// Command Structure:
//
//	skmf [global flags]
//	  ├── serve                       run the HTTP API
//	  ├── resources [category]        list resources of a category
//	  ├── add-resource                create a labeled resource
//	  ├── query --triple ...          run a query built from triples
//	  ├── export <id>                 write a subject as N-Quads
//	  ├── seed <file>                 apply a YAML fixture file
//	  ├── user add|passwd|disable     manage accounts
//	  ├── audit                       print the audit log
//	  └── version                     print build information
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags
//  2. Environment variables (SKMF_ prefix)
//  3. Configuration file values
//  4. Default values
//
// Example Usage:
//
//	skmf --config ~/.skmf/config.yaml serve
//	SKMF_SPARQL_HOST=fuseki skmf resources skmf:Resource
//	skmf query --triple '?s a skmf:Resource' --triple '?s rdfs:label ?label'
package cli

import (
	"context"
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"skmf.evalgo.org/config"
)

// RootCmd is the skmf command tree used by main.
var RootCmd = NewRootCmd()

type contextKey struct{}

// NewRootCmd builds a fresh command tree with its own configuration loader.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	loader := config.NewLoader(config.EnvPrefix)
	loader.SetConfigDefaults()

	root := &cobra.Command{
		Use:   "skmf",
		Short: "semantic knowledge management on top of a SPARQL triple store",
		Long: `SKMF

Manages labeled resources and user accounts stored as RDF in a SPARQL 1.1
triple store. The store is reached through separate query and update
endpoints; every command builds SPARQL statements and sends them there.

Configuration can be provided via command-line flags, environment variables
(SKMF_ prefix) or a YAML configuration file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, err := homedir.Expand(cfgFile)
			if err != nil {
				return fmt.Errorf("invalid config path: %w", err)
			}
			cfg, err := loader.LoadConfig(path)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cfg))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.skmf/config.yaml)")
	flags.String("namespace", "", "base IRI for local names")
	flags.String("sparql-host", "", "SPARQL endpoint host")
	flags.Int("sparql-port", 0, "SPARQL endpoint port")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.String("redis-addr", "", "redis address for token revocation")
	flags.String("audit-path", "", "bbolt file for the audit log")

	v := loader.Viper()
	for key, flag := range map[string]string{
		"namespace":      "namespace",
		"sparql.host":    "sparql-host",
		"sparql.port":    "sparql-port",
		"logging.level":  "log-level",
		"logging.format": "log-format",
		"redis.addr":     "redis-addr",
		"audit.path":     "audit-path",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}

	serve := newServeCmd()
	serve.Flags().Int("port", 0, "HTTP server port")
	serve.Flags().String("jwt-secret", "", "JWT signing secret")
	cobra.CheckErr(v.BindPFlag("server.port", serve.Flags().Lookup("port")))
	cobra.CheckErr(v.BindPFlag("security.jwt_secret", serve.Flags().Lookup("jwt-secret")))

	root.AddCommand(
		serve,
		newResourcesCmd(),
		newAddResourceCmd(),
		newQueryCmd(),
		newExportCmd(),
		newSeedCmd(),
		newUserCmd(),
		newAuditCmd(),
		newVersionCmd(),
	)
	return root
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(contextKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
