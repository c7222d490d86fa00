package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/utils"
)

const (
	insertBatchSize = 50
	filterChunkSize = 500
)

// Tables names the tables the store reads and writes.
type Tables struct {
	Raw         string
	Cleaned     string
	Maintenance string
}

var (
	_ VehicleStore      = (*SQLStore)(nil)
	_ MaintenanceWriter = (*SQLStore)(nil)
)

// SQLStore persists raw, cleaned and maintenance rows to Postgres or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	tables  Tables
	logger  *utils.Logger
}

// Open connects to the database for driver ("postgres" or "sqlite"), waiting
// for it to come up, and returns a ready-to-use SQLStore.
func Open(driver, dsn string, tables Tables, logger *utils.Logger) (*SQLStore, error) {
	if driver == "sqlite" && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("store: create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		logger.Warn("[store] Ping failed (attempt %d/10): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping failed after retries: %w", err)
	}

	return NewSQLStore(db, driver, tables, logger)
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, driver string, tables Tables, logger *utils.Logger) (*SQLStore, error) {
	for _, t := range []string{tables.Raw, tables.Cleaned, tables.Maintenance} {
		if err := validateTable(t); err != nil {
			return nil, err
		}
	}
	return &SQLStore{db: db, dialect: dialect{driver: driver}, tables: tables, logger: logger}, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, ddl := range []string{
		rawSchema(s.tables.Raw),
		cleanedSchema(s.tables.Cleaned),
		maintenanceSchema(s.tables.Maintenance),
	} {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// InsertRaw appends scraped listings with decode_flag false.
func (s *SQLStore) InsertRaw(ctx context.Context, records []*models.RawVehicleRecord) error {
	if len(records) == 0 {
		return nil
	}

	const cols = 14
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := 0; i < len(records); i += insertBatchSize {
			end := min(i+insertBatchSize, len(records))
			batch := records[i:end]

			values := make([]string, 0, len(batch))
			args := make([]any, 0, len(batch)*cols)
			for idx, r := range batch {
				values = append(values, s.dialect.placeholders(idx*cols+1, cols))
				args = append(args,
					nullString(r.Name), nullString(r.Price), nullString(r.Mileage),
					nullString(r.ExteriorColor), nullString(r.InteriorColor), nullString(r.Drivetrain),
					nullString(r.FuelType), nullString(r.Transmission), nullString(r.Engine),
					nullString(r.VIN), models.NormalizeTimestamp(r.CapturedAt),
					nullString(r.Source), nullString(r.ZipLocation), r.Decoded)
			}

			query := fmt.Sprintf(`
				INSERT INTO %s (
					car_name, car_price, car_mileage, exterior_color, interior_color,
					drivetrain, fuel_type, transmission, engine, vin,
					captured_at, source, zip_location, decode_flag
				) VALUES %s
			`, s.tables.Raw, strings.Join(values, ","))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("store: insert raw: %w", err)
			}
		}
		return nil
	})
}

// FetchPending returns every raw row whose decode flag is false.
func (s *SQLStore) FetchPending(ctx context.Context) ([]*models.RawVehicleRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(vin, ''), COALESCE(car_name, ''), COALESCE(car_price, ''),
		       COALESCE(car_mileage, ''), COALESCE(exterior_color, ''), COALESCE(interior_color, ''),
		       COALESCE(drivetrain, ''), COALESCE(fuel_type, ''), COALESCE(transmission, ''),
		       COALESCE(engine, ''), COALESCE(source, ''), COALESCE(zip_location, ''),
		       captured_at, decode_flag
		FROM %s
		WHERE decode_flag = FALSE
		ORDER BY captured_at
	`, s.tables.Raw))
	if err != nil {
		return nil, fmt.Errorf("store: fetch pending: %w", err)
	}
	defer rows.Close()

	var records []*models.RawVehicleRecord
	for rows.Next() {
		r := &models.RawVehicleRecord{}
		if err := rows.Scan(
			&r.VIN, &r.Name, &r.Price, &r.Mileage, &r.ExteriorColor, &r.InteriorColor,
			&r.Drivetrain, &r.FuelType, &r.Transmission, &r.Engine, &r.Source, &r.ZipLocation,
			&r.CapturedAt, &r.Decoded,
		); err != nil {
			return nil, fmt.Errorf("store: scan raw row: %w", err)
		}
		r.CapturedAt = models.NormalizeTimestamp(r.CapturedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CleanedKeys returns the (VIN, timestamp) pairs already stored for vins.
func (s *SQLStore) CleanedKeys(ctx context.Context, vins []string) (models.ObservationSet, error) {
	keys := models.ObservationSet{}

	for _, chunk := range chunkStrings(vins, filterChunkSize) {
		filter, args := s.dialect.inFilter("vin", 1, chunk)
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT vin, captured_at FROM %s WHERE %s`, s.tables.Cleaned, filter), args...)
		if err != nil {
			return nil, fmt.Errorf("store: load cleaned keys: %w", err)
		}

		for rows.Next() {
			var vin string
			var at time.Time
			if err := rows.Scan(&vin, &at); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: scan cleaned key: %w", err)
			}
			keys.Add(models.NewObservationKey(vin, at))
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("store: load cleaned keys: %w", err)
		}
	}
	return keys, nil
}

// InsertCleaned appends cleaned observations in a single transaction.
func (s *SQLStore) InsertCleaned(ctx context.Context, records []*models.CleanedVehicleRecord) error {
	if len(records) == 0 {
		return nil
	}

	const cols = 18
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := 0; i < len(records); i += insertBatchSize {
			end := min(i+insertBatchSize, len(records))
			batch := records[i:end]

			values := make([]string, 0, len(batch))
			args := make([]any, 0, len(batch)*cols)
			for idx, c := range batch {
				values = append(values, s.dialect.placeholders(idx*cols+1, cols))
				args = append(args,
					c.VIN, nullString(c.Make), nullString(c.Model), nullInt(c.Year), nullString(c.Trim),
					nullFloat(c.Price), nullFloat(c.Mileage),
					nullString(string(c.ExteriorColor)), nullString(string(c.InteriorColor)),
					nullString(string(c.Drivetrain)), nullString(string(c.FuelType)),
					nullString(string(c.Transmission)), nullString(c.EngineSize),
					nullString(c.EngineConfiguration), nullString(string(c.FuelSystem)),
					c.Turbocharged, c.Hybrid, models.NormalizeTimestamp(c.CapturedAt))
			}

			query := fmt.Sprintf(`
				INSERT INTO %s (
					vin, make, model, year, trim, car_price, car_mileage,
					exterior_color_general, interior_color_general, drivetrain_general,
					fuel_type_general, transmission_general, engine_size,
					engine_configuration, fuel_system, turbocharged, hybrid, captured_at
				) VALUES %s
			`, s.tables.Cleaned, strings.Join(values, ","))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("store: insert cleaned: %w", err)
			}
		}
		return nil
	})
}

// MarkDecoded sets decode_flag on every raw row whose VIN is in vins and
// returns the number of rows changed.
func (s *SQLStore) MarkDecoded(ctx context.Context, vins []string) (int64, error) {
	if len(vins) == 0 {
		return 0, nil
	}

	var total int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunkStrings(vins, filterChunkSize) {
			filter, args := s.dialect.inFilter("vin", 1, chunk)
			res, err := tx.ExecContext(ctx, fmt.Sprintf(
				`UPDATE %s SET decode_flag = TRUE WHERE decode_flag = FALSE AND %s`, s.tables.Raw, filter), args...)
			if err != nil {
				return fmt.Errorf("store: mark decoded: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("store: mark decoded: %w", err)
			}
			total += n
		}
		return nil
	})
	return total, err
}

// FetchCleaned retrieves all cleaned rows; used by the insight report.
func (s *SQLStore) FetchCleaned(ctx context.Context) ([]*models.CleanedVehicleRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT vin, make, model, year, trim, car_price, car_mileage,
		       exterior_color_general, interior_color_general, drivetrain_general,
		       fuel_type_general, transmission_general, engine_size,
		       engine_configuration, fuel_system, turbocharged, hybrid, captured_at
		FROM %s
		ORDER BY captured_at, vin
	`, s.tables.Cleaned))
	if err != nil {
		return nil, fmt.Errorf("store: fetch cleaned: %w", err)
	}
	defer rows.Close()

	var records []*models.CleanedVehicleRecord
	for rows.Next() {
		var (
			c                                              models.CleanedVehicleRecord
			mk, model, trim, ext, inter, drive, fuel, trns sql.NullString
			size, config, fuelSys                          sql.NullString
			year                                           sql.NullInt64
			price, mileage                                 sql.NullFloat64
			turbo, hybrid                                  sql.NullBool
		)
		if err := rows.Scan(
			&c.VIN, &mk, &model, &year, &trim, &price, &mileage,
			&ext, &inter, &drive, &fuel, &trns, &size, &config, &fuelSys,
			&turbo, &hybrid, &c.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan cleaned row: %w", err)
		}

		c.Make, c.Model, c.Trim = mk.String, model.String, trim.String
		if year.Valid {
			y := int(year.Int64)
			c.Year = &y
		}
		if price.Valid {
			c.Price = &price.Float64
		}
		if mileage.Valid {
			c.Mileage = &mileage.Float64
		}
		c.ExteriorColor = models.ColorBucket(ext.String)
		c.InteriorColor = models.ColorBucket(inter.String)
		c.Drivetrain = models.Drivetrain(drive.String)
		c.FuelType = models.FuelType(fuel.String)
		c.Transmission = models.Transmission(trns.String)
		c.EngineSize, c.EngineConfiguration = size.String, config.String
		c.FuelSystem = models.FuelSystem(fuelSys.String)
		c.Turbocharged, c.Hybrid = turbo.Bool, hybrid.Bool
		c.CapturedAt = models.NormalizeTimestamp(c.CapturedAt)

		records = append(records, &c)
	}
	return records, rows.Err()
}

// InsertMaintenance appends maintenance rows.
func (s *SQLStore) InsertMaintenance(ctx context.Context, records []*models.MaintenanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	const cols = 5
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := 0; i < len(records); i += insertBatchSize {
			end := min(i+insertBatchSize, len(records))
			batch := records[i:end]

			values := make([]string, 0, len(batch))
			args := make([]any, 0, len(batch)*cols)
			for idx, m := range batch {
				values = append(values, s.dialect.placeholders(idx*cols+1, cols))
				args = append(args, m.Brand, m.Model, m.Year, m.MajorRepairProbability, m.AnnualCosts)
			}

			query := fmt.Sprintf(`
				INSERT INTO %s (brand, model, year, major_repair_probability, annual_costs)
				VALUES %s
			`, s.tables.Maintenance, strings.Join(values, ","))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("store: insert maintenance: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
