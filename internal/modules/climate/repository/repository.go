package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-measurements-since.sql
var getMeasurementsSinceSQL string

//go:embed sql/get-station-measurements-since.sql
var getStationMeasurementsSinceSQL string

//go:embed sql/get-daily-temperature-stats.sql
var getDailyTemperatureStatsSQL string

// ClimateRepository reads the station and measurement tables. Dates are
// YYYY-MM-DD strings and bounds are inclusive.
type ClimateRepository interface {
	GetStations(ctx context.Context) ([]types.Station, error)
	GetMeasurementsSince(ctx context.Context, since string) ([]types.Measurement, error)
	GetStationMeasurementsSince(ctx context.Context, stationID string, since string) ([]types.Measurement, error)
	GetDailyTemperatureStats(ctx context.Context, start string, end string) ([]types.DailyTemperatureStats, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	out := []types.Station{}
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.Elevation); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetMeasurementsSince(ctx context.Context, since string) ([]types.Measurement, error) {
	rows, err := r.db.QueryContext(ctx, getMeasurementsSinceSQL, since)
	if err != nil {
		return nil, fmt.Errorf("query measurements since %s: %w", since, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close measurements rows", "error", err)
		}
	}()
	return scanMeasurements(rows)
}

func (r *repositoryImpl) GetStationMeasurementsSince(ctx context.Context, stationID string, since string) ([]types.Measurement, error) {
	rows, err := r.db.QueryContext(ctx, getStationMeasurementsSinceSQL, since, stationID)
	if err != nil {
		return nil, fmt.Errorf("query measurements for %s since %s: %w", stationID, since, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close station measurements rows", "error", err)
		}
	}()
	return scanMeasurements(rows)
}

func (r *repositoryImpl) GetDailyTemperatureStats(ctx context.Context, start string, end string) ([]types.DailyTemperatureStats, error) {
	rows, err := r.db.QueryContext(ctx, getDailyTemperatureStatsSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("query temperature stats %s..%s: %w", start, end, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close temperature stats rows", "error", err)
		}
	}()
	var out []types.DailyTemperatureStats
	for rows.Next() {
		var s types.DailyTemperatureStats
		if err := rows.Scan(&s.Date, &s.Min, &s.Max, &s.Avg); err != nil {
			return nil, fmt.Errorf("scan temperature stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanMeasurements(rows *sql.Rows) ([]types.Measurement, error) {
	out := []types.Measurement{}
	for rows.Next() {
		var m types.Measurement
		if err := rows.Scan(&m.Station, &m.Date, &m.Prcp, &m.Tobs); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
