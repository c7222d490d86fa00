package models

// ColorBucket is the normalized exterior or interior color.
type ColorBucket string

const (
	ColorRed    ColorBucket = "Red"
	ColorBlack  ColorBucket = "Black"
	ColorWhite  ColorBucket = "White"
	ColorGray   ColorBucket = "Gray"
	ColorBlue   ColorBucket = "Blue"
	ColorGreen  ColorBucket = "Green"
	ColorBrown  ColorBucket = "Brown"
	ColorYellow ColorBucket = "Yellow"
	ColorOrange ColorBucket = "Orange"
	ColorOther  ColorBucket = "Other"
)

// Drivetrain is the normalized drive configuration. The zero value means the
// raw text was not in the lookup table.
type Drivetrain string

const (
	DrivetrainFWD   Drivetrain = "FWD"
	DrivetrainAWD   Drivetrain = "AWD"
	Drivetrain4WD   Drivetrain = "4WD"
	DrivetrainRWD   Drivetrain = "RWD"
	DrivetrainOther Drivetrain = "Other"
)

// FuelType is the normalized fuel type.
type FuelType string

const (
	FuelGasoline FuelType = "Gasoline"
	FuelDiesel   FuelType = "Diesel"
	FuelElectric FuelType = "Electric"
	FuelFlex     FuelType = "Flex Fuel"
	FuelHybrid   FuelType = "Hybrid"
	FuelOther    FuelType = "Other"
)

// Transmission is the normalized transmission type.
type Transmission string

const (
	TransmissionAutomatic Transmission = "Automatic"
	TransmissionManual    Transmission = "Manual"
	TransmissionOther     Transmission = "Other"
)

// FuelSystem is the injection token found in the engine text. The zero value
// means none was found.
type FuelSystem string

const (
	FuelSystemGDI  FuelSystem = "GDI"
	FuelSystemMPFI FuelSystem = "MPFI"
	FuelSystemDI   FuelSystem = "DI"
	FuelSystemSFI  FuelSystem = "SFI"
)
