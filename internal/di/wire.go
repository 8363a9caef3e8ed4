//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideBrokerClient,

		// Repositories
		ProvidePGStore,
		ProvideSnapshotStore,
		ProvideOutcomeStore,
		ProvideDecisionCache,
		ProvideSignalPublisher,

		// Engines and use cases
		ProvideOIDeltaEngine,
		ProvidePipeline,
		ProvideLabeler,
		ProvideCycleRunner,
		ProvideCleaner,
		ProvideScheduler,
		ProvideBacktester,
		ProvideSnapshotHandler,

		// HTTP and application
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
