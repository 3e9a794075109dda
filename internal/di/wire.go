//go:build wireinject
// +build wireinject

package di

import (
	"OptiFeed/pkg/config"
	"OptiFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Domain services
		ProvideScreener,
		ProvideEnhancer,

		// Market data and sinks
		ProvideQuoteProvider,
		ProvideSinks,

		// Monitor pipeline
		ProvideMonitor,

		// HTTP API
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
