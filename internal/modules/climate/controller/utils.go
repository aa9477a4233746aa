package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"surfsup-server/internal/modules/climate/service"
	"surfsup-server/internal/utils"
)

const (
	routePrecipitation = "/api/v1.0/precipitation"
	routeStations      = "/api/v1.0/stations"
	routeTobs          = "/api/v1.0/tobs"
	routeStart         = "/api/v1.0/start-date/<start_date>"
	routeStartEnd      = "/api/v1.0/start-date/<start_date>/end-date/<end_date>"
)

// indexBody lists the routes in the order they are documented.
var indexBody = "Available Routes:<br/>" + strings.Join([]string{
	routePrecipitation,
	routeStations,
	routeTobs,
	routeStart,
	routeStartEnd,
}, "<br/>")

// writeServiceError maps a service failure onto the response. Query errors
// carry their own status; anything else is a data-source fault.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var qe *service.QueryError
	if errors.As(err, &qe) {
		utils.WriteError(w, qe.Status, qe.Message)
		return
	}
	slog.Error(msg, "path", r.URL.Path, "error", err)
	utils.WriteError(w, http.StatusInternalServerError, msg)
}
