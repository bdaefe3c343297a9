//go:build wireinject
// +build wireinject

package di

import (
	"cgd/internal"
	"cgd/internal/archive"
	"cgd/internal/captcha"
	"cgd/internal/controllers"
	"cgd/internal/guard"
	"cgd/internal/providers"
	"cgd/internal/services"
	"cgd/internal/store"
	"cgd/internal/structures"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		store.NewStore,
		store.NewSiteRepository,
		store.NewDeviceRepository,
		store.NewConsentRepository,
		store.NewEventRepository,

		guard.NewMemoryLimiter,
		captcha.NewVerifier,

		archive.NewZstdCompressor,
		archive.NewArchiver,
		archive.NewScheduler,

		services.NewConsentService,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
