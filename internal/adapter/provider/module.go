package provider

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/growthmart/internal/config"
)

// Module exposes the fulfillment gateway implementation to the fx graph.
var Module = fx.Provide(newGateway)

type gatewayParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newGateway(p gatewayParams) (Gateway, error) {
	if p.Config.ProviderURL == "" {
		p.Logger.Warn("provider url not set; using mock fulfillment provider",
			slog.Duration("delay", p.Config.ProviderMockDelay))
		return NewMock(p.Config.ProviderMockDelay), nil
	}
	return NewHTTPClient(p.Config.ProviderURL, p.Config.ProviderAPIKey, p.Config.ProviderTimeout, p.Logger)
}
