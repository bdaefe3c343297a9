package internal

import (
	"cgd/internal/controllers"
	"cgd/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/consent/status", http.HandlerFunc(apiController.Status))
	routers.Post("/consent", http.HandlerFunc(apiController.RecordConsent))
	routers.Post("/collect", http.HandlerFunc(apiController.Collect))
	return routers
}
