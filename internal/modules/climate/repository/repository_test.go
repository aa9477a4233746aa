package repository

import (
	"context"
	"database/sql"
	"math"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// Schema of the hawaii.sqlite dataset.
const testSchema = `
CREATE TABLE station (
  id        INTEGER NOT NULL PRIMARY KEY,
  station   TEXT,
  name      TEXT,
  latitude  FLOAT,
  longitude FLOAT,
  elevation FLOAT
);
CREATE TABLE measurement (
  id      INTEGER NOT NULL PRIMARY KEY,
  station TEXT,
  date    TEXT,
  prcp    FLOAT,
  tobs    FLOAT
);
`

const testMeasurements = `
INSERT INTO measurement (station, date, prcp, tobs) VALUES
  ('USC00519397', '2016-08-22', 0.40, 78),
  ('USC00519397', '2016-08-23', 0.00, 81),
  ('USC00519281', '2016-08-23', 1.79, 77),
  ('USC00513117', '2016-08-23', NULL, 76),
  ('USC00519281', '2017-08-18', 0.06, 79),
  ('USC00519397', '2017-08-23', 0.00, 81),
  ('USC00519281', '2017-08-23', NULL, NULL),
  ('USC00516128', '2017-08-23', 0.45, 76);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
		t.Fatalf("exec schema: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("close db: %v", closeErr)
		}
	})
	return db
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("exec: %v", err)
	}
}

func TestNewRepository(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if repo == nil {
		t.Fatal("NewRepository returned nil")
	}
}

func TestGetStations_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	if stations == nil || len(stations) != 0 {
		t.Fatalf("GetStations: got %#v, want empty non-nil slice", stations)
	}
}

func TestGetStations_TableOrder(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `
		INSERT INTO station (id, station, name, latitude, longitude, elevation) VALUES
		(1, 'USC00519397', 'WAIKIKI 717.2, HI US', 21.2716, -157.8168, 3.0),
		(2, 'USC00513117', 'KANEOHE 838.1, HI US', 21.4234, -157.8015, 14.6),
		(3, 'USC00519281', NULL, NULL, NULL, NULL)
	`)
	repo := NewRepository(db)

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	want := []string{"USC00519397", "USC00513117", "USC00519281"}
	if len(stations) != len(want) {
		t.Fatalf("GetStations: got %d stations, want %d", len(stations), len(want))
	}
	for i, id := range want {
		if stations[i].ID != id {
			t.Errorf("stations[%d].ID = %q, want %q", i, stations[i].ID, id)
		}
	}
	if stations[0].Name != "WAIKIKI 717.2, HI US" || stations[0].Elevation == nil || *stations[0].Elevation != 3.0 {
		t.Errorf("stations[0] = %+v", stations[0])
	}
	if stations[2].Name != "" || stations[2].Latitude != nil {
		t.Errorf("stations[2] with NULL attributes = %+v", stations[2])
	}
}

func TestGetMeasurementsSince(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, testMeasurements)
	repo := NewRepository(db)

	got, err := repo.GetMeasurementsSince(context.Background(), "2016-08-23")
	if err != nil {
		t.Fatalf("GetMeasurementsSince: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("GetMeasurementsSince: got %d rows, want 7", len(got))
	}
	// Storage order, duplicates kept.
	wantDates := []string{"2016-08-23", "2016-08-23", "2016-08-23", "2017-08-18", "2017-08-23", "2017-08-23", "2017-08-23"}
	for i, d := range wantDates {
		if got[i].Date != d {
			t.Errorf("row %d date = %q, want %q", i, got[i].Date, d)
		}
	}
	if got[0].Station != "USC00519397" || got[0].Prcp == nil || *got[0].Prcp != 0 {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[2].Prcp != nil {
		t.Errorf("row 2 prcp = %v, want nil", *got[2].Prcp)
	}
	if got[5].Tobs != nil {
		t.Errorf("row 5 tobs = %v, want nil", *got[5].Tobs)
	}
}

func TestGetMeasurementsSince_Empty(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, testMeasurements)
	repo := NewRepository(db)

	got, err := repo.GetMeasurementsSince(context.Background(), "2018-01-01")
	if err != nil {
		t.Fatalf("GetMeasurementsSince: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty non-nil slice", got)
	}
}

func TestGetStationMeasurementsSince(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, testMeasurements)
	repo := NewRepository(db)

	got, err := repo.GetStationMeasurementsSince(context.Background(), "USC00519281", "2016-08-23")
	if err != nil {
		t.Fatalf("GetStationMeasurementsSince: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	for i, m := range got {
		if m.Station != "USC00519281" {
			t.Errorf("row %d station = %q", i, m.Station)
		}
		if m.Date < "2016-08-23" {
			t.Errorf("row %d date %q before cutoff", i, m.Date)
		}
	}
	if got[0].Tobs == nil || *got[0].Tobs != 77 {
		t.Errorf("row 0 tobs = %v, want 77", got[0].Tobs)
	}
}

func TestGetDailyTemperatureStats(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, testMeasurements)
	repo := NewRepository(db)

	got, err := repo.GetDailyTemperatureStats(context.Background(), "2016-08-23", "2017-08-23")
	if err != nil {
		t.Fatalf("GetDailyTemperatureStats: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d days, want 3: %+v", len(got), got)
	}

	tests := []struct {
		date          string
		min, max, avg float64
	}{
		{date: "2016-08-23", min: 76, max: 81, avg: 78},
		{date: "2017-08-18", min: 79, max: 79, avg: 79},
		// NULL tobs from USC00519281 is not an observation.
		{date: "2017-08-23", min: 76, max: 81, avg: 78.5},
	}
	for i, tt := range tests {
		s := got[i]
		if s.Date != tt.date {
			t.Errorf("day %d date = %q, want %q", i, s.Date, tt.date)
		}
		if s.Min != tt.min || s.Max != tt.max || math.Abs(s.Avg-tt.avg) > 1e-9 {
			t.Errorf("day %s = min %v max %v avg %v, want %v %v %v", s.Date, s.Min, s.Max, s.Avg, tt.min, tt.max, tt.avg)
		}
	}
}

func TestGetDailyTemperatureStats_InclusiveBounds(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, testMeasurements)
	repo := NewRepository(db)

	got, err := repo.GetDailyTemperatureStats(context.Background(), "2017-08-18", "2017-08-18")
	if err != nil {
		t.Fatalf("GetDailyTemperatureStats: %v", err)
	}
	if len(got) != 1 || got[0].Date != "2017-08-18" {
		t.Fatalf("got %+v, want single day 2017-08-18", got)
	}
}

func TestGetDailyTemperatureStats_NoRows(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, testMeasurements)
	repo := NewRepository(db)

	got, err := repo.GetDailyTemperatureStats(context.Background(), "2017-08-24", "2017-12-31")
	if err != nil {
		t.Fatalf("GetDailyTemperatureStats: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d days, want 0", len(got))
	}
}

func TestRepository_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, testMeasurements)
	repo := NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.GetMeasurementsSince(ctx, "2016-08-23"); err == nil {
		t.Fatal("GetMeasurementsSince with canceled context returned nil error")
	}
}
