// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/autopilot/pkg/persistence"
	"github.com/dukex/autopilot/pkg/persistence/memory"
	"github.com/dukex/autopilot/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"memory", "postgres", "postgresql"}

// NewPersistence opens the store named by the scheme of databaseURL.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "memory":
		logger.WarnContext(ctx, "Using in-memory persistence; data is lost on exit")

		return memory.NewPersistence(), nil
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported persistence provider %q (supported: %s)",
			provider, strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return provider
}
