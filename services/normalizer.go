package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"vehicle-data-pipeline/models"
)

// missingMarker is the placeholder cars.com renders for an empty spec field.
const missingMarker = "–"

var (
	// nonPriceRegexp matches every character that cannot be part of a price.
	nonPriceRegexp = regexp.MustCompile(`[^\d.]+`)
	// mileageUnitRegexp matches the unit suffix of a mileage value.
	mileageUnitRegexp = regexp.MustCompile(` mi\.`)
	// engineSizeRegexp captures a displacement such as "2.0L".
	engineSizeRegexp = regexp.MustCompile(`\d+\.\d+L`)
	// engineConfigRegexp captures a cylinder layout such as "I4" or "V6".
	engineConfigRegexp = regexp.MustCompile(`[IViv]\d+`)
)

type colorRule struct {
	bucket   models.ColorBucket
	keywords []string
}

// colorTable is matched in order; the first bucket with a keyword contained
// in the text wins. "Metallic" sits under Gray, so "Black Metallic" is Black.
var colorTable = []colorRule{
	{models.ColorRed, []string{"red", "rosso", "crimson", "ruby"}},
	{models.ColorBlack, []string{"black", "noir", "ebony"}},
	{models.ColorWhite, []string{"white", "ivory"}},
	{models.ColorGray, []string{"gray", "grey", "graphite", "metallic"}},
	{models.ColorBlue, []string{"blue", "azure", "cobalt"}},
	{models.ColorGreen, []string{"green", "emerald"}},
	{models.ColorBrown, []string{"brown", "chocolate", "sandstone"}},
	{models.ColorYellow, []string{"yellow", "gold"}},
	{models.ColorOrange, []string{"orange"}},
}

var drivetrainTable = map[string]models.Drivetrain{
	"Front-wheel Drive": models.DrivetrainFWD,
	"All-wheel Drive":   models.DrivetrainAWD,
	"Four-wheel Drive":  models.Drivetrain4WD,
	"Rear-wheel Drive":  models.DrivetrainRWD,
	"FWD":               models.DrivetrainFWD,
	"AWD":               models.DrivetrainAWD,
	"4WD":               models.Drivetrain4WD,
	"RWD":               models.DrivetrainRWD,
	missingMarker:       models.DrivetrainOther,
}

var (
	automaticMarkers = []string{"automatic", "cvt", "tiptronic", "shiftronic"}
	manualMarkers    = []string{"manual", "m/t"}
)

// fuelSystemOrder is checked front to back with a case-sensitive substring
// test. GDI precedes DI so a GDI engine is not reported as DI.
var fuelSystemOrder = []models.FuelSystem{
	models.FuelSystemGDI,
	models.FuelSystemMPFI,
	models.FuelSystemDI,
	models.FuelSystemSFI,
}

// EngineInfo is what can be extracted from the free-text engine description.
type EngineInfo struct {
	Size          string
	Configuration string
	FuelSystem    models.FuelSystem
	Turbocharged  bool
	Hybrid        bool
}

// Normalizer maps raw listing text into closed categories. Every method is
// total: unrecognized input yields Other or an absent value, never an error.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize builds a cleaned record from a raw listing and its decoded VIN.
func (n *Normalizer) Normalize(raw *models.RawVehicleRecord, dec *models.DecodedVinRecord) *models.CleanedVehicleRecord {
	drivetrain, _ := n.Drivetrain(raw.Drivetrain)
	engine := n.Engine(raw.Engine)

	return &models.CleanedVehicleRecord{
		VIN:                 dec.VIN,
		Make:                dec.Make,
		Model:               dec.Model,
		Year:                dec.Year,
		Trim:                dec.Trim,
		Price:               n.Price(raw.Price),
		Mileage:             n.Mileage(raw.Mileage),
		ExteriorColor:       n.Color(raw.ExteriorColor),
		InteriorColor:       n.Color(raw.InteriorColor),
		Drivetrain:          drivetrain,
		FuelType:            n.FuelType(raw.FuelType),
		Transmission:        n.Transmission(raw.Transmission),
		EngineSize:          engine.Size,
		EngineConfiguration: engine.Configuration,
		FuelSystem:          engine.FuelSystem,
		Turbocharged:        engine.Turbocharged,
		Hybrid:              engine.Hybrid,
		CapturedAt:          models.NormalizeTimestamp(raw.CapturedAt),
	}
}

// Price keeps only digits and decimal points, e.g. "$24,995" → 24995.
// Returns nil when nothing parseable remains.
func (n *Normalizer) Price(raw string) *float64 {
	return parseNumber(nonPriceRegexp.ReplaceAllString(raw, ""))
}

// Mileage parses "45,231 mi." → 45231. The "–" placeholder is missing.
func (n *Normalizer) Mileage(raw string) *float64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	cleaned = mileageUnitRegexp.ReplaceAllString(cleaned, "")
	if strings.TrimSpace(cleaned) == missingMarker {
		return nil
	}
	return parseNumber(cleaned)
}

// Color returns the first bucket in colorTable whose keyword appears in raw,
// ignoring case.
func (n *Normalizer) Color(raw string) models.ColorBucket {
	lower := strings.ToLower(raw)
	for _, rule := range colorTable {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.bucket
			}
		}
	}
	return models.ColorOther
}

// Drivetrain looks raw up verbatim. ok is false when raw is not in the table;
// callers store the zero value as missing.
func (n *Normalizer) Drivetrain(raw string) (models.Drivetrain, bool) {
	d, ok := drivetrainTable[raw]
	return d, ok
}

// FuelType maps the listing's fuel type. Blank and "–" count as gasoline.
func (n *Normalizer) FuelType(raw string) models.FuelType {
	switch raw {
	case "Gasoline", missingMarker, "":
		return models.FuelGasoline
	case "Diesel":
		return models.FuelDiesel
	case "Electric":
		return models.FuelElectric
	case "E85 Flex Fuel":
		return models.FuelFlex
	case "Hybrid":
		return models.FuelHybrid
	default:
		return models.FuelOther
	}
}

// Transmission classifies by case-insensitive marker words. Automatic markers
// are checked first.
func (n *Normalizer) Transmission(raw string) models.Transmission {
	lower := strings.ToLower(raw)
	if containsAny(lower, automaticMarkers) {
		return models.TransmissionAutomatic
	}
	if containsAny(lower, manualMarkers) {
		return models.TransmissionManual
	}
	return models.TransmissionOther
}

// Engine decomposes text such as "2.0L Turbo I4 GDI".
func (n *Normalizer) Engine(raw string) EngineInfo {
	info := EngineInfo{
		Size:          engineSizeRegexp.FindString(raw),
		Configuration: strings.ToUpper(engineConfigRegexp.FindString(raw)),
	}
	for _, fs := range fuelSystemOrder {
		if strings.Contains(raw, string(fs)) {
			info.FuelSystem = fs
			break
		}
	}
	lower := strings.ToLower(raw)
	info.Turbocharged = strings.Contains(lower, "turbo")
	info.Hybrid = strings.Contains(lower, "hybrid")
	return info
}

func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
