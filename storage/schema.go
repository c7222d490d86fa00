package storage

import "fmt"

// The DDL is written to run unchanged on Postgres and SQLite.

func rawSchema(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			car_name       TEXT,
			car_price      TEXT,
			car_mileage    TEXT,
			exterior_color TEXT,
			interior_color TEXT,
			drivetrain     TEXT,
			fuel_type      TEXT,
			transmission   TEXT,
			engine         TEXT,
			vin            TEXT,
			captured_at    TIMESTAMP NOT NULL,
			source         TEXT,
			zip_location   TEXT,
			decode_flag    BOOLEAN   NOT NULL DEFAULT FALSE
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_decode_flag ON %[1]s(decode_flag);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_vin         ON %[1]s(vin);
	`, table)
}

func cleanedSchema(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			vin                    TEXT NOT NULL,
			make                   TEXT,
			model                  TEXT,
			year                   INTEGER,
			trim                   TEXT,
			car_price              DOUBLE PRECISION,
			car_mileage            DOUBLE PRECISION,
			exterior_color_general TEXT,
			interior_color_general TEXT,
			drivetrain_general     TEXT,
			fuel_type_general      TEXT,
			transmission_general   TEXT,
			engine_size            TEXT,
			engine_configuration   TEXT,
			fuel_system            TEXT,
			turbocharged           BOOLEAN,
			hybrid                 BOOLEAN,
			captured_at            TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_vin_captured ON %[1]s(vin, captured_at);
	`, table)
}

func maintenanceSchema(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			brand                    TEXT NOT NULL,
			model                    TEXT NOT NULL,
			year                     TEXT,
			major_repair_probability TEXT,
			annual_costs             TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_brand_model ON %[1]s(brand, model);
	`, table)
}
