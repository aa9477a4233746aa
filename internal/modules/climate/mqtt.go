package climate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"surfsup-server/internal/modules/climate/service"
	"surfsup-server/internal/mqtt"
)

// QueryBridge is the part of the MQTT bridge the climate module needs.
type QueryBridge interface {
	SetQueryHandler(handler mqtt.QueryHandler)
}

func registerMQTTHandler(bridge QueryBridge, svc *service.Service, logger *slog.Logger) {
	bridge.SetQueryHandler(func(ctx context.Context, q mqtt.Query) mqtt.Reply {
		var (
			body any
			err  error
		)
		switch q.Name {
		case "precipitation":
			body, err = svc.Precipitation(ctx)
		case "stations":
			body, err = svc.Stations(ctx)
		case "tobs":
			body, err = svc.TemperatureObservations(ctx)
		case "stats":
			body, err = svc.TemperatureStats(ctx, q.Start, q.End)
		default:
			logger.Warn("unknown mqtt query", "query", q.Name)
			return errorReply(http.StatusNotFound, "unknown query")
		}

		if err != nil {
			var qe *service.QueryError
			if errors.As(err, &qe) {
				return errorReply(qe.Status, qe.Message)
			}
			logger.Error("mqtt query failed", "query", q.Name, "error", err)
			return errorReply(http.StatusInternalServerError, "failed to run query")
		}
		return mqtt.Reply{Status: http.StatusOK, Body: body}
	})
}

func errorReply(status int, msg string) mqtt.Reply {
	return mqtt.Reply{Status: status, Body: map[string]string{"error": msg}}
}
