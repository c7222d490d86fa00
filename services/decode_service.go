package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vehicle-data-pipeline/decoder"
	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/storage"
	"vehicle-data-pipeline/utils"
)

// VinDecoder resolves VINs in chunks. *decoder.Client satisfies it.
type VinDecoder interface {
	Decode(ctx context.Context, vins []string) []decoder.ChunkResult
}

// CycleReport summarizes one reconciliation cycle.
type CycleReport struct {
	Pending      int
	UniqueVINs   int
	Chunks       int
	FailedChunks int
	Diagnostics  int
	Inserted     int
	Duplicates   int
	Undecoded    int
	Flagged      int64
	Duration     time.Duration
}

// DecodeService runs the fetch-pending → decode → normalize → dedup →
// persist cycle.
type DecodeService struct {
	store      storage.VehicleStore
	decoder    VinDecoder
	reconciler *Reconciler
	logger     *utils.Logger
}

// NewDecodeService wires a DecodeService.
func NewDecodeService(store storage.VehicleStore, dec VinDecoder, reconciler *Reconciler, logger *utils.Logger) *DecodeService {
	return &DecodeService{store: store, decoder: dec, reconciler: reconciler, logger: logger}
}

// Run executes one cycle. Decoder failures only reduce what gets decoded;
// store failures are returned. The cleaned insert is committed before the
// decode flags are set, so a crash in between leaves rows pending and the
// next run re-decodes them, with deduplication preventing double inserts.
func (s *DecodeService) Run(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	report := &CycleReport{}

	pending, err := s.store.FetchPending(ctx)
	if err != nil {
		return nil, err
	}
	report.Pending = len(pending)
	if len(pending) == 0 {
		s.logger.Info("[decode] No pending rows, nothing to do")
		report.Duration = time.Since(start)
		return report, nil
	}

	vins := uniqueVINs(pending)
	report.UniqueVINs = len(vins)

	chunks := s.decoder.Decode(ctx, vins)
	report.Chunks = len(chunks)

	parts := make([]*decoder.ParseResult, 0, len(chunks))
	for _, c := range chunks {
		if !c.OK() {
			report.FailedChunks++
			continue
		}
		parts = append(parts, decoder.Parse(c.Response))
	}
	decoded := decoder.Merge(parts...)
	report.Diagnostics = len(decoded.Diagnostics)
	for _, d := range decoded.Diagnostics {
		s.logger.Debug("[decode] %s", d)
	}

	existing := models.ObservationSet{}
	if len(decoded.DecodedVINs) > 0 {
		existing, err = s.store.CleanedKeys(ctx, decoded.DecodedVINs)
		if err != nil {
			return nil, err
		}
	}

	result := s.reconciler.Reconcile(pending, decoded, existing)

	if err := s.store.InsertCleaned(ctx, result.Cleaned); err != nil {
		return nil, fmt.Errorf("decode: persist cleaned rows: %w", err)
	}
	result.MarkPersisted()

	flagged, err := s.store.MarkDecoded(ctx, result.DecodedVINs)
	if err != nil {
		return nil, fmt.Errorf("decode: update decode flags: %w", err)
	}

	report.Inserted = result.Count(StatePersisted)
	report.Duplicates = result.Count(StateDuplicate)
	report.Undecoded = result.Count(StateDecodeFailed)
	report.Flagged = flagged
	report.Duration = time.Since(start)

	s.logger.Info("[decode] Cycle done in %s: %d pending, %d VINs, %d/%d chunks failed, %d inserted, %d duplicate, %d undecoded, %d rows flagged",
		report.Duration.Round(time.Millisecond), report.Pending, report.UniqueVINs,
		report.FailedChunks, report.Chunks, report.Inserted, report.Duplicates,
		report.Undecoded, report.Flagged)
	return report, nil
}

// uniqueVINs returns the distinct non-blank VINs of records in first-seen order.
func uniqueVINs(records []*models.RawVehicleRecord) []string {
	seen := utils.NewStringSet()
	var out []string
	for _, v := range decoder.VINsOf(records) {
		v = strings.TrimSpace(v)
		if v == "" || !seen.Add(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
