package mountains

import (
	"net/http"

	"github.com/bacchus320/snowflake/internal/modules/mountains/controller"
	"github.com/bacchus320/snowflake/internal/modules/mountains/repository"
)

func RegisterFeature(mux *http.ServeMux, repo repository.MountainRepository, forecasts controller.Snapshotter) {
	mountainController := controller.NewMountainController(repo, forecasts)
	mountainController.RegisterRoutes(mux)
}
