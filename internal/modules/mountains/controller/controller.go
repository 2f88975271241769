package controller

import (
	"net/http"

	"github.com/bacchus320/snowflake/internal/modules/mountains/repository"
	"github.com/bacchus320/snowflake/internal/modules/mountains/service"
)

type Snapshotter interface {
	Snapshot() *service.ForecastState
}

type MountainController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type mountainControllerImpl struct {
	repository repository.MountainRepository
	forecasts  Snapshotter
}

func NewMountainController(repository repository.MountainRepository, forecasts Snapshotter) MountainController {
	return &mountainControllerImpl{repository: repository, forecasts: forecasts}
}

func (c *mountainControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleDashboard)
	mux.HandleFunc("GET /partials/mountains", c.handleMountainsPartial)
	mux.HandleFunc("GET /api/v1/mountains", c.handleMountains)
	mux.HandleFunc("GET /api/v1/mountains/{id}/forecast", c.handleMountainForecast)
	mux.HandleFunc("GET /api/v1/scores", c.handleScores)
}
