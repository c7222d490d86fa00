package models

import "time"

// RawVehicleRecord is one scraped listing exactly as captured from the page.
// Text fields keep the site's formatting; an empty string means the field
// was not present on the page.
type RawVehicleRecord struct {
	VIN           string
	Name          string
	Price         string
	Mileage       string
	ExteriorColor string
	InteriorColor string
	Drivetrain    string
	FuelType      string
	Transmission  string
	Engine        string
	Source        string
	ZipLocation   string
	CapturedAt    time.Time
	Decoded       bool
}

// DecodedVinRecord is one successful entry of a decoder response.
type DecodedVinRecord struct {
	VIN   string
	Make  string
	Model string
	Year  *int
	Trim  string
}

// CleanedVehicleRecord is the normalized observation of one vehicle at one
// capture time. Nil pointers and empty category/engine values are stored as NULL.
type CleanedVehicleRecord struct {
	VIN                 string
	Make                string
	Model               string
	Year                *int
	Trim                string
	Price               *float64
	Mileage             *float64
	ExteriorColor       ColorBucket
	InteriorColor       ColorBucket
	Drivetrain          Drivetrain
	FuelType            FuelType
	Transmission        Transmission
	EngineSize          string
	EngineConfiguration string
	FuelSystem          FuelSystem
	Turbocharged        bool
	Hybrid              bool
	CapturedAt          time.Time
}

// Key returns the observation identity of the record.
func (c *CleanedVehicleRecord) Key() ObservationKey {
	return NewObservationKey(c.VIN, c.CapturedAt)
}

// ObservationKey identifies one vehicle observed at one scrape time.
type ObservationKey struct {
	VIN        string
	CapturedAt time.Time
}

// NewObservationKey builds a key whose timestamp is comparable across
// storage drivers (UTC, microsecond precision).
func NewObservationKey(vin string, capturedAt time.Time) ObservationKey {
	return ObservationKey{VIN: vin, CapturedAt: NormalizeTimestamp(capturedAt)}
}

// NormalizeTimestamp converts t to UTC at microsecond precision, the
// resolution Postgres keeps.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// MaintenanceRecord is one year row of a make- or model-level maintenance table.
type MaintenanceRecord struct {
	Brand                  string
	Model                  string
	Year                   string
	MajorRepairProbability string
	AnnualCosts            string
}

// InsightReport holds the computed analytics over the cleaned dataset.
type InsightReport struct {
	TotalVehicles  int
	PricedVehicles int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *CleanedVehicleRecord
	ByMake         map[string]int
	ByFuelType     map[string]int
	ByDrivetrain   map[string]int
}

// ObservationSet is a set of observation keys already present in the cleaned store.
type ObservationSet map[ObservationKey]struct{}

// Has reports whether k is in the set.
func (s ObservationSet) Has(k ObservationKey) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k.
func (s ObservationSet) Add(k ObservationKey) {
	s[k] = struct{}{}
}
