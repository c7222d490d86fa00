package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"vehicle-data-pipeline/models"
)

var rawCSVHeader = []string{
	"car_name", "car_price", "car_mileage", "exterior_color", "interior_color",
	"drivetrain", "fuel_type", "transmission", "engine", "vin",
	"captured_at", "source", "zip_location", "decode_flag",
}

var _ RawListingWriter = (*CSVWriter)(nil)

// CSVWriter writes raw (uncleaned) listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(rawCSVHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends listings to the file.
func (c *CSVWriter) WriteRaw(listings []*models.RawVehicleRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.Name,
			l.Price,
			l.Mileage,
			l.ExteriorColor,
			l.InteriorColor,
			l.Drivetrain,
			l.FuelType,
			l.Transmission,
			l.Engine,
			l.VIN,
			l.CapturedAt.UTC().Format(time.RFC3339),
			l.Source,
			l.ZipLocation,
			strconv.FormatBool(l.Decoded),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
