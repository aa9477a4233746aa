package controller

import (
	"net/http"

	"surfsup-server/internal/modules/climate/service"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service *service.Service
}

func NewClimateController(service *service.Service) ClimateController {
	return &climateControllerImpl{service: service}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET "+routePrecipitation, c.handlePrecipitation)
	mux.HandleFunc("GET "+routeStations, c.handleStations)
	mux.HandleFunc("GET "+routeTobs, c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/start-date/{start}", c.handleTemperatureStats)
	mux.HandleFunc("GET /api/v1.0/start-date/{start}/end-date/{end}", c.handleTemperatureStats)
}
