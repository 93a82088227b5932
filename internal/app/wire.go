//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eslsoft/mistbook/internal/adapter/httpapi"
	adapterrepo "github.com/eslsoft/mistbook/internal/adapter/repository"
	"github.com/eslsoft/mistbook/internal/infrastructure/config"
	"github.com/eslsoft/mistbook/internal/infrastructure/database"
	"github.com/eslsoft/mistbook/internal/infrastructure/server"
	"github.com/eslsoft/mistbook/internal/usecase"
)

var configSet = wire.NewSet(
	config.Load,
	provideClock,
	provideSchedulerParams,
	provideRetentionDays,
	provideArchiverBatchSize,
)

var databaseSet = wire.NewSet(
	database.NewConnection,
	wire.Bind(new(adapterrepo.DB), new(*pgxpool.Pool)),
)

var repositorySet = wire.NewSet(
	adapterrepo.NewCardRepository,
	adapterrepo.NewSessionRepository,
	adapterrepo.NewMistakeIndexRepository,
	adapterrepo.NewTxManager,
)

var usecaseSet = wire.NewSet(
	usecase.NewProjector,
	usecase.NewCardLifecycleUsecase,
	usecase.NewDueSetUsecase,
	usecase.NewArchiverUsecase,
	usecase.NewReviewSessionUsecase,
)

var serviceSet = wire.NewSet(
	httpapi.NewAPIV1Service,
)

var serverSet = wire.NewSet(
	server.NewLogger,
	server.NewServer,
)

// Initialize builds the application container using Wire.
func Initialize() (*Container, func(), error) {
	wire.Build(
		configSet,
		databaseSet,
		repositorySet,
		usecaseSet,
		serviceSet,
		serverSet,
		wire.Struct(new(Container), "Logger", "Server", "Archiver"),
	)
	return nil, nil, nil
}
