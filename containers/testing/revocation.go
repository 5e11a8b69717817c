package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RevocationStoreConfig holds configuration for the redis-compatible
// container backing token revocation.
type RevocationStoreConfig struct {
	// Image is the Docker image to use (default: "docker.dragonflydb.io/dragonflydb/dragonfly:v1.34.1")
	Image string
	// StartupTimeout is the maximum time to wait for the server (default: 30s)
	StartupTimeout time.Duration
	// Password enables authentication when set
	Password string
}

// DefaultRevocationStoreConfig returns the default configuration. DragonflyDB
// speaks the redis protocol and starts in well under a second.
func DefaultRevocationStoreConfig() RevocationStoreConfig {
	return RevocationStoreConfig{
		Image:          "docker.dragonflydb.io/dragonflydb/dragonfly:v1.34.1",
		StartupTimeout: 30 * time.Second,
	}
}

// SetupRevocationStore starts a redis-compatible server and returns its
// host:port address for db.NewRedisRevocationStore.
func SetupRevocationStore(ctx context.Context, t *testing.T, config *RevocationStoreConfig) (string, ContainerCleanup, error) {
	if config == nil {
		defaultConfig := DefaultRevocationStoreConfig()
		config = &defaultConfig
	}

	req := testcontainers.ContainerRequest{
		Image:        config.Image,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForListeningPort("6379/tcp").
			WithStartupTimeout(config.StartupTimeout),
	}
	if config.Password != "" {
		req.Env = map[string]string{
			"DFLY_requirepass": config.Password,
		}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to start revocation store container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return "", func() {}, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", func() {}, fmt.Errorf("failed to get mapped port: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", host, port.Port())
	t.Logf("revocation store at %s", addr)

	return addr, createCleanupFunc(ctx, container, "revocation store"), nil
}
