package internal

import (
	"testing"

	"cgd/internal/controllers"
	"cgd/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRoutes(t *testing.T) {
	controller := controllers.NewApiController(&testutil.MockLogger{}, nil)

	router := InitRoutes(controller)

	routes := router.GetRoutes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/consent/status", routes[0].Url)
	assert.Equal(t, "/consent", routes[1].Url)
	assert.Equal(t, "/collect", routes[2].Url)
}
