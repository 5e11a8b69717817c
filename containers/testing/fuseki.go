package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// FusekiConfig holds configuration for the Apache Jena Fuseki test container.
type FusekiConfig struct {
	// Image is the Docker image to use (default: "stain/jena-fuseki:4.8.0")
	Image string
	// Dataset is the name of the TDB2 dataset created at startup (default: "skmf")
	Dataset string
	// AdminPassword protects the /$/ admin routes (default: "admin")
	AdminPassword string
	// JavaOpts are JVM options for memory configuration (default: "-Xmx1g")
	JavaOpts string
	// StartupTimeout is the maximum time to wait for Fuseki to be ready (default: 120s)
	StartupTimeout time.Duration
}

// DefaultFusekiConfig returns the default Fuseki configuration for testing.
func DefaultFusekiConfig() FusekiConfig {
	return FusekiConfig{
		Image:          "stain/jena-fuseki:4.8.0",
		Dataset:        "skmf",
		AdminPassword:  "admin",
		JavaOpts:       "-Xmx1g",
		StartupTimeout: 120 * time.Second,
	}
}

// FusekiEndpoints are the SPARQL protocol URLs of a running dataset.
type FusekiEndpoints struct {
	BaseURL   string
	QueryURL  string
	UpdateURL string
}

// SetupFuseki starts a Fuseki server with one empty dataset and returns its
// query and update endpoints.
//
// Container Configuration:
//   - Image: stain/jena-fuseki (SPARQL 1.1 query and update server)
//   - Port: 3030/tcp
//   - Dataset: created from FUSEKI_DATASET_1, stored as TDB2
//   - Wait Strategy: HTTP GET /$/ping returning 200 OK
//
// The dataset endpoints accept updates without authentication; only the
// admin routes require AdminPassword.
//
// Example Usage:
//
//	endpoints, cleanup, err := SetupFuseki(ctx, t, nil)
//	require.NoError(t, err)
//	defer cleanup()
//
//	ep, err := db.NewSPARQLEndpoint(endpoints.QueryURL, endpoints.UpdateURL, 10*time.Second)
func SetupFuseki(ctx context.Context, t *testing.T, config *FusekiConfig) (FusekiEndpoints, ContainerCleanup, error) {
	if config == nil {
		defaultConfig := DefaultFusekiConfig()
		config = &defaultConfig
	}

	req := testcontainers.ContainerRequest{
		Image:        config.Image,
		ExposedPorts: []string{"3030/tcp"},
		Env: map[string]string{
			"ADMIN_PASSWORD":   config.AdminPassword,
			"FUSEKI_DATASET_1": config.Dataset,
			"JVM_ARGS":         config.JavaOpts,
		},
		WaitingFor: wait.ForHTTP("/$/ping").
			WithPort("3030/tcp").
			WithStartupTimeout(config.StartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return FusekiEndpoints{}, func() {}, fmt.Errorf("failed to start Fuseki container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return FusekiEndpoints{}, func() {}, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "3030")
	if err != nil {
		_ = container.Terminate(ctx)
		return FusekiEndpoints{}, func() {}, fmt.Errorf("failed to get mapped port: %w", err)
	}

	endpoints := FusekiEndpoints{
		BaseURL:   getConnectionURL("http", host, port.Port(), ""),
		QueryURL:  getConnectionURL("http", host, port.Port(), "/"+config.Dataset+"/query"),
		UpdateURL: getConnectionURL("http", host, port.Port(), "/"+config.Dataset+"/update"),
	}
	t.Logf("Fuseki dataset %s at %s", config.Dataset, endpoints.BaseURL)

	return endpoints, createCleanupFunc(ctx, container, "Fuseki"), nil
}
