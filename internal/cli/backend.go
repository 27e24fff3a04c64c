package cli

import (
	"context"
	"fmt"

	"tasksync/internal/backend/googletasks"
	"tasksync/internal/backend/restapi"
	"tasksync/internal/config"
	"tasksync/internal/logging"
	"tasksync/internal/service"
)

// DefaultServiceFactory picks the backend named by cfg.Backend.
func DefaultServiceFactory(ctx context.Context, cfg *config.Config, log *logging.Logger) (service.Service, error) {
	switch cfg.Backend {
	case config.BackendREST:
		return restapi.NewFromConfig(ctx, cfg, log)
	case config.BackendGoogle:
		if !cfg.HasOAuthClient() {
			return nil, fmt.Errorf("%s not found in %s", config.OAuthClientFile, cfg.Dir)
		}
		if !cfg.HasToken() {
			return nil, fmt.Errorf("not logged in (run: %s login)", config.AppName)
		}
		return googletasks.New(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}
