package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-data-pipeline/models"
)

func TestNormalizerPrice(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		raw  string
		want *float64
	}{
		{"$24,995", ptrFloat(24995)},
		{"$1,200.50", ptrFloat(1200.50)},
		{"Not Priced", nil},
		{"", nil},
		{"1.2.3", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Price(tt.raw), "Price(%q)", tt.raw)
	}
}

func TestNormalizerMileage(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		raw  string
		want *float64
	}{
		{"45,231 mi.", ptrFloat(45231)},
		{"12 mi.", ptrFloat(12)},
		{"–", nil},
		{"", nil},
		{"unknown", nil},
		{"Inf", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Mileage(tt.raw), "Mileage(%q)", tt.raw)
	}
}

func TestNormalizerColorTableOrder(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		raw  string
		want models.ColorBucket
	}{
		{"Midnight Black Metallic", models.ColorBlack},
		{"Rosso Corsa", models.ColorRed},
		{"CRIMSON pearl", models.ColorRed},
		{"Lunar Silver Metallic", models.ColorGray},
		{"Graphite", models.ColorGray},
		{"Ivory", models.ColorWhite},
		{"Cobalt Blue", models.ColorBlue},
		{"Emerald", models.ColorGreen},
		{"Sandstone", models.ColorBrown},
		{"Champagne Gold", models.ColorYellow},
		{"Sunset Orange", models.ColorOrange},
		// red is checked before white
		{"Red and White", models.ColorRed},
		{"Beige", models.ColorOther},
		{"", models.ColorOther},
		{"–", models.ColorOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Color(tt.raw), "Color(%q)", tt.raw)
	}
}

func TestNormalizerColorTableIsPinned(t *testing.T) {
	want := []models.ColorBucket{
		models.ColorRed, models.ColorBlack, models.ColorWhite, models.ColorGray,
		models.ColorBlue, models.ColorGreen, models.ColorBrown, models.ColorYellow,
		models.ColorOrange,
	}
	got := make([]models.ColorBucket, 0, len(colorTable))
	for _, rule := range colorTable {
		got = append(got, rule.bucket)
	}
	assert.Equal(t, want, got)
}

func TestNormalizerDrivetrain(t *testing.T) {
	n := NewNormalizer()

	d, ok := n.Drivetrain("Front-wheel Drive")
	assert.True(t, ok)
	assert.Equal(t, models.DrivetrainFWD, d)

	d, ok = n.Drivetrain("Four-wheel Drive")
	assert.True(t, ok)
	assert.Equal(t, models.Drivetrain4WD, d)

	d, ok = n.Drivetrain("–")
	assert.True(t, ok)
	assert.Equal(t, models.DrivetrainOther, d)

	d, ok = n.Drivetrain("front-wheel drive")
	assert.False(t, ok)
	assert.Equal(t, models.Drivetrain(""), d)
}

func TestNormalizerFuelType(t *testing.T) {
	n := NewNormalizer()

	tests := map[string]models.FuelType{
		"Gasoline":       models.FuelGasoline,
		"":               models.FuelGasoline,
		"–":              models.FuelGasoline,
		"Diesel":         models.FuelDiesel,
		"Electric":       models.FuelElectric,
		"E85 Flex Fuel":  models.FuelFlex,
		"Hybrid":         models.FuelHybrid,
		"Plug-In Hybrid": models.FuelOther,
		"gasoline":       models.FuelOther,
	}
	for raw, want := range tests {
		assert.Equal(t, want, n.FuelType(raw), "FuelType(%q)", raw)
	}
}

func TestNormalizerTransmission(t *testing.T) {
	n := NewNormalizer()

	tests := map[string]models.Transmission{
		"8-Speed Automatic":           models.TransmissionAutomatic,
		"Continuously Variable (CVT)": models.TransmissionAutomatic,
		"6-Speed Tiptronic":           models.TransmissionAutomatic,
		"Shiftronic":                  models.TransmissionAutomatic,
		"6-Speed Manual":              models.TransmissionManual,
		"5-Speed M/T":                 models.TransmissionManual,
		"Automatic with manual shift": models.TransmissionAutomatic,
		"":                            models.TransmissionOther,
		"–":                           models.TransmissionOther,
		"Dual-clutch":                 models.TransmissionOther,
	}
	for raw, want := range tests {
		assert.Equal(t, want, n.Transmission(raw), "Transmission(%q)", raw)
	}
}

func TestNormalizerEngine(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		raw  string
		want EngineInfo
	}{
		{"2.0L Turbo I4 GDI", EngineInfo{Size: "2.0L", Configuration: "I4", FuelSystem: models.FuelSystemGDI, Turbocharged: true}},
		{"3.5L V6 24V MPFI DOHC", EngineInfo{Size: "3.5L", Configuration: "V6", FuelSystem: models.FuelSystemMPFI}},
		{"2.5L i4 DI Hybrid", EngineInfo{Size: "2.5L", Configuration: "I4", FuelSystem: models.FuelSystemDI, Hybrid: true}},
		{"5.7L v8 16V SFI", EngineInfo{Size: "5.7L", Configuration: "V8", FuelSystem: models.FuelSystemSFI}},
		{"Electric", EngineInfo{}},
		{"", EngineInfo{}},
		{"–", EngineInfo{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Engine(tt.raw), "Engine(%q)", tt.raw)
	}
}

func TestNormalizerIsDeterministic(t *testing.T) {
	n := NewNormalizer()
	inputs := []string{"", "–", "Midnight Black Metallic", "weird ✓ text", "E85 Flex Fuel", "6-SPEED MANUAL"}
	for _, in := range inputs {
		assert.Equal(t, n.Color(in), n.Color(in))
		assert.Equal(t, n.FuelType(in), n.FuelType(in))
		assert.Equal(t, n.Transmission(in), n.Transmission(in))
		assert.Equal(t, n.Engine(in), n.Engine(in))
		assert.Equal(t, n.Price(in), n.Price(in))
		assert.Equal(t, n.Mileage(in), n.Mileage(in))
	}
}

func TestNormalizeBuildsCleanedRecord(t *testing.T) {
	n := NewNormalizer()
	captured := time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.FixedZone("CST", -6*3600))

	raw := &models.RawVehicleRecord{
		VIN:           "1HGCM82633A004352",
		Name:          "2003 Honda Accord EX",
		Price:         "$24,995",
		Mileage:       "45,231 mi.",
		ExteriorColor: "Midnight Black Metallic",
		InteriorColor: "Ivory",
		Drivetrain:    "Front-wheel Drive",
		FuelType:      "Gasoline",
		Transmission:  "5-Speed Automatic",
		Engine:        "2.0L Turbo I4 GDI",
		CapturedAt:    captured,
	}
	dec := &models.DecodedVinRecord{VIN: "1HGCM82633A004352", Make: "Honda", Model: "Accord", Year: ptrInt(2003), Trim: "EX"}

	got := n.Normalize(raw, dec)
	require.NotNil(t, got)

	assert.Equal(t, "Honda", got.Make)
	assert.Equal(t, "Accord", got.Model)
	assert.Equal(t, ptrInt(2003), got.Year)
	assert.Equal(t, ptrFloat(24995), got.Price)
	assert.Equal(t, ptrFloat(45231), got.Mileage)
	assert.Equal(t, models.ColorBlack, got.ExteriorColor)
	assert.Equal(t, models.ColorWhite, got.InteriorColor)
	assert.Equal(t, models.DrivetrainFWD, got.Drivetrain)
	assert.Equal(t, models.FuelGasoline, got.FuelType)
	assert.Equal(t, models.TransmissionAutomatic, got.Transmission)
	assert.Equal(t, "2.0L", got.EngineSize)
	assert.Equal(t, "I4", got.EngineConfiguration)
	assert.Equal(t, models.FuelSystemGDI, got.FuelSystem)
	assert.True(t, got.Turbocharged)
	assert.False(t, got.Hybrid)
	assert.Equal(t, time.UTC, got.CapturedAt.Location())
	assert.True(t, got.CapturedAt.Equal(captured.Truncate(time.Microsecond)))
}

func ptrFloat(f float64) *float64 { return &f }

func ptrInt(i int) *int { return &i }
