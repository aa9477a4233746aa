package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"surfsup-server/internal/config"
	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
)

// TrailingWindowDays is the length of the precipitation and tobs window,
// counted back from the reference date.
const TrailingWindowDays = 365

// inputDateLayout accepts one- or two-digit month and day; the year must
// have four digits.
const inputDateLayout = "2006-1-2"

// QueryError is a caller-facing failure with the HTTP status it maps to.
type QueryError struct {
	Status  int
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

var (
	ErrInvalidDate = &QueryError{
		Status:  http.StatusBadRequest,
		Message: "Invalid date format. Please use the format YYYY-MM-DD.",
	}
	ErrNoTemperatureData = &QueryError{
		Status:  http.StatusNotFound,
		Message: "No temperature data found within the specified date range.",
	}
)

// TemperatureSummary is serialized in TMIN, TMAX, TAVG order.
type TemperatureSummary struct {
	TMIN float64 `json:"TMIN"`
	TMAX float64 `json:"TMAX"`
	TAVG float64 `json:"TAVG"`
}

type StationList struct {
	Stations []string `json:"stations"`
}

// DatedValue is a single-key {date: value} object. Lists of them keep
// repeated dates as separate elements.
type DatedValue[T any] map[string]T

type Options struct {
	ReferenceDate time.Time
	TobsStation   string
	// Now supplies "today" for open-ended statistics; defaults to time.Now.
	Now func() time.Time
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ReferenceDate: cfg.ReferenceDate,
		TobsStation:   cfg.TobsStation,
	}
}

type Service struct {
	repository    repository.ClimateRepository
	referenceDate time.Time
	tobsStation   string
	now           func() time.Time
}

func NewService(repository repository.ClimateRepository, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repository:    repository,
		referenceDate: opts.ReferenceDate,
		tobsStation:   opts.TobsStation,
		now:           now,
	}
}

// Cutoff is the first date of the trailing window, inclusive.
func (s *Service) Cutoff() string {
	return s.referenceDate.AddDate(0, 0, -TrailingWindowDays).Format(config.DateLayout)
}

func (s *Service) Precipitation(ctx context.Context) ([]DatedValue[*float64], error) {
	measurements, err := s.repository.GetMeasurementsSince(ctx, s.Cutoff())
	if err != nil {
		return nil, fmt.Errorf("precipitation: %w", err)
	}
	return PrecipitationByDate(measurements), nil
}

func (s *Service) Stations(ctx context.Context) (StationList, error) {
	stations, err := s.repository.GetStations(ctx)
	if err != nil {
		return StationList{}, fmt.Errorf("stations: %w", err)
	}
	return StationIDs(stations), nil
}

// TemperatureObservations returns {station: [{date: tobs}, ...]} for the
// configured station over the trailing window.
func (s *Service) TemperatureObservations(ctx context.Context) (map[string][]DatedValue[*float64], error) {
	measurements, err := s.repository.GetStationMeasurementsSince(ctx, s.tobsStation, s.Cutoff())
	if err != nil {
		return nil, fmt.Errorf("temperature observations: %w", err)
	}
	return map[string][]DatedValue[*float64]{
		s.tobsStation: TemperatureByDate(measurements),
	}, nil
}

// TemperatureStats summarizes tobs per date between start and end inclusive.
// An empty end means today by the service clock.
func (s *Service) TemperatureStats(ctx context.Context, start string, end string) ([]DatedValue[TemperatureSummary], error) {
	startDate, err := time.Parse(inputDateLayout, start)
	if err != nil {
		return nil, ErrInvalidDate
	}
	endDate := s.now()
	if end != "" {
		endDate, err = time.Parse(inputDateLayout, end)
		if err != nil {
			return nil, ErrInvalidDate
		}
	}

	stats, err := s.repository.GetDailyTemperatureStats(ctx,
		startDate.Format(config.DateLayout),
		endDate.Format(config.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("temperature stats: %w", err)
	}
	if len(stats) == 0 {
		return nil, ErrNoTemperatureData
	}
	return SummariesByDate(stats), nil
}

func PrecipitationByDate(measurements []types.Measurement) []DatedValue[*float64] {
	out := make([]DatedValue[*float64], 0, len(measurements))
	for _, m := range measurements {
		out = append(out, DatedValue[*float64]{m.Date: m.Prcp})
	}
	return out
}

func TemperatureByDate(measurements []types.Measurement) []DatedValue[*float64] {
	out := make([]DatedValue[*float64], 0, len(measurements))
	for _, m := range measurements {
		out = append(out, DatedValue[*float64]{m.Date: m.Tobs})
	}
	return out
}

func StationIDs(stations []types.Station) StationList {
	ids := make([]string, 0, len(stations))
	for _, st := range stations {
		ids = append(ids, st.ID)
	}
	return StationList{Stations: ids}
}

func SummariesByDate(stats []types.DailyTemperatureStats) []DatedValue[TemperatureSummary] {
	out := make([]DatedValue[TemperatureSummary], 0, len(stats))
	for _, st := range stats {
		out = append(out, DatedValue[TemperatureSummary]{
			st.Date: {TMIN: st.Min, TMAX: st.Max, TAVG: st.Avg},
		})
	}
	return out
}
