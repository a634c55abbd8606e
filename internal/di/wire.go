//go:build wireinject
// +build wireinject

package di

import (
	"FinPanel/pkg/config"
	"FinPanel/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRecorder,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideResponseCache,

		// Repositories and providers
		ProvideMarketStore,
		ProvidePanelPublisher,
		ProvidePriceSource,
		ProvideEventSource,
		ProvideReferenceSource,

		// Use cases
		ProvideIngestor,
		ProvidePipelineConfig,
		ProvidePipeline,

		// Application
		ProvideApp,
	)
	return nil, nil, nil
}
