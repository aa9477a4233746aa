package climate

import (
	"database/sql"
	"log/slog"
	"net/http"

	"surfsup-server/internal/modules/climate/controller"
	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/service"
)

// RegisterFeature mounts the climate routes on mux. bridge may be nil when
// MQTT is disabled.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, bridge QueryBridge, opts service.Options, logger *slog.Logger) {
	climateRepository := repository.NewRepository(db)
	climateService := service.NewService(climateRepository, opts)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)

	if bridge != nil {
		registerMQTTHandler(bridge, climateService, logger)
	}
}
