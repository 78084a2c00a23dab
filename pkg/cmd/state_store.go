package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence/redisstate"
)

// NewStateStore returns a Redis state store for redis:// URLs and the fallback otherwise.
// The returned close function is a no-op when the fallback is used.
func NewStateStore(
	ctx context.Context,
	logger *slog.Logger,
	stateURL string,
	fallback persistence.MonitoringRepository,
) (persistence.MonitoringRepository, func() error, error) {
	if !strings.HasPrefix(stateURL, "redis://") && !strings.HasPrefix(stateURL, "rediss://") {
		return fallback, func() error { return nil }, nil
	}

	store, err := redisstate.Open(ctx, stateURL, logger)
	if err != nil {
		return nil, nil, err
	}

	return store, store.Close, nil
}
