package controller

import (
	"net/http"

	"surfsup-server/internal/utils"
)

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	utils.WriteHTML(w, http.StatusOK, indexBody)
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	precipitation, err := c.service.Precipitation(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, precipitation)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	observations, err := c.service.TemperatureObservations(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to load temperature observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

// handleTemperatureStats serves both the open-ended and the bounded range;
// PathValue("end") is empty for the former.
func (c *climateControllerImpl) handleTemperatureStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.service.TemperatureStats(r.Context(), r.PathValue("start"), r.PathValue("end"))
	if err != nil {
		writeServiceError(w, r, err, "failed to load temperature statistics")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
