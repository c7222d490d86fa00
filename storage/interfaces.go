package storage

import (
	"context"

	"vehicle-data-pipeline/models"
)

// VehicleStore is the relational store holding raw listings (with their
// decode flag) and cleaned observations.
type VehicleStore interface {
	InsertRaw(ctx context.Context, records []*models.RawVehicleRecord) error
	FetchPending(ctx context.Context) ([]*models.RawVehicleRecord, error)
	CleanedKeys(ctx context.Context, vins []string) (models.ObservationSet, error)
	InsertCleaned(ctx context.Context, records []*models.CleanedVehicleRecord) error
	MarkDecoded(ctx context.Context, vins []string) (int64, error)
	FetchCleaned(ctx context.Context) ([]*models.CleanedVehicleRecord, error)
	Close() error
}

// MaintenanceWriter persists scraped maintenance statistics.
type MaintenanceWriter interface {
	InsertMaintenance(ctx context.Context, records []*models.MaintenanceRecord) error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawVehicleRecord) error
	Close() error
}
