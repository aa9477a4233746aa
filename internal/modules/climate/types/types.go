package types

type Station struct {
	ID        string
	Name      string
	Latitude  *float64
	Longitude *float64
	Elevation *float64
}

// Measurement is one daily observation. Date is YYYY-MM-DD.
type Measurement struct {
	Station string
	Date    string
	Prcp    *float64
	Tobs    *float64
}

// DailyTemperatureStats aggregates tobs across every station reporting Date.
type DailyTemperatureStats struct {
	Date string
	Min  float64
	Max  float64
	Avg  float64
}
