// Package testing provides testcontainers-based stores for integration tests.
//
// Containers are ephemeral and use randomized host ports. Tests using this
// package carry the integration build tag:
//
//	//go:build integration
//
// Example Usage:
//
//	func TestWithFuseki(t *testing.T) {
//	    ctx := context.Background()
//	    endpoints, cleanup, err := SetupFuseki(ctx, t, nil)
//	    require.NoError(t, err)
//	    defer cleanup()
//	    // endpoints.QueryURL and endpoints.UpdateURL are ready
//	}
package testing

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
)

// ContainerCleanup terminates a test container. It is safe to call after a
// failed setup.
type ContainerCleanup func()

func createCleanupFunc(ctx context.Context, container testcontainers.Container, containerType string) ContainerCleanup {
	return func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Printf("Warning: Failed to terminate %s container: %v\n", containerType, err)
		}
	}
}

// getConnectionURL builds a URL from the mapped host and port.
//
//	getConnectionURL("http", "localhost", "32781", "/ds/query")
//	// "http://localhost:32781/ds/query"
func getConnectionURL(protocol, host, port, path string) string {
	if path != "" {
		return fmt.Sprintf("%s://%s:%s%s", protocol, host, port, path)
	}
	return fmt.Sprintf("%s://%s:%s", protocol, host, port)
}

