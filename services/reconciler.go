package services

import (
	"strings"

	"vehicle-data-pipeline/decoder"
	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/utils"
)

// RecordState is where a raw record ended up in one reconciliation cycle.
// A record moves pending → decoded → normalized → persisted, or stops at
// duplicate or decode_failed. decode_failed rows keep decoded=false and are
// retried by the next cycle.
type RecordState string

const (
	StateNormalized   RecordState = "normalized"
	StatePersisted    RecordState = "persisted"
	StateDuplicate    RecordState = "duplicate"
	StateDecodeFailed RecordState = "decode_failed"
)

// RecordOutcome pairs a pending raw record with its state after the cycle.
type RecordOutcome struct {
	Record *models.RawVehicleRecord
	State  RecordState
}

// ReconcileResult is the writable output of one cycle.
type ReconcileResult struct {
	// Cleaned holds candidates not yet present in the cleaned store.
	Cleaned []*models.CleanedVehicleRecord
	// DecodedVINs lists every pending VIN the decoder recognized, as stored
	// in the raw table, whether or not its candidate survived deduplication.
	DecodedVINs []string
	Outcomes    []RecordOutcome
	// AlreadyDecoded counts input rows skipped because their flag was set.
	AlreadyDecoded int
}

// Count returns how many outcomes are in state s.
func (r *ReconcileResult) Count(s RecordState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == s {
			n++
		}
	}
	return n
}

// MarkPersisted moves every normalized outcome to persisted. Called once the
// cleaned insert has committed.
func (r *ReconcileResult) MarkPersisted() {
	for i := range r.Outcomes {
		if r.Outcomes[i].State == StateNormalized {
			r.Outcomes[i].State = StatePersisted
		}
	}
}

// Reconciler merges pending raw rows with decoder output into cleaned rows.
type Reconciler struct {
	normalizer *Normalizer
	logger     *utils.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(normalizer *Normalizer, logger *utils.Logger) *Reconciler {
	return &Reconciler{normalizer: normalizer, logger: logger}
}

// Reconcile joins pending rows with decoded VINs, normalizes the joined rows
// and drops any whose (VIN, timestamp) is in existing or was already emitted
// in this call. It does not touch the store and does not modify its inputs.
func (r *Reconciler) Reconcile(pending []*models.RawVehicleRecord, decoded *decoder.ParseResult, existing models.ObservationSet) *ReconcileResult {
	result := &ReconcileResult{}

	byVIN := make(map[string]*models.DecodedVinRecord)
	recognized := make(map[string]struct{})
	if decoded != nil {
		for _, rec := range decoded.Records {
			if _, ok := byVIN[rec.VIN]; !ok {
				byVIN[rec.VIN] = rec
			}
		}
		for _, vin := range decoded.DecodedVINs {
			recognized[vin] = struct{}{}
		}
	}

	seen := make(models.ObservationSet, len(existing))
	for k := range existing {
		seen.Add(k)
	}
	flagged := make(map[string]struct{})

	for _, raw := range pending {
		if raw.Decoded {
			result.AlreadyDecoded++
			continue
		}

		// The decoder sees trimmed VINs; the flag update needs the stored value.
		vin := strings.TrimSpace(raw.VIN)
		if _, ok := recognized[vin]; ok {
			if _, done := flagged[raw.VIN]; !done {
				flagged[raw.VIN] = struct{}{}
				result.DecodedVINs = append(result.DecodedVINs, raw.VIN)
			}
		}

		dec, ok := byVIN[vin]
		if !ok {
			result.Outcomes = append(result.Outcomes, RecordOutcome{Record: raw, State: StateDecodeFailed})
			continue
		}

		cleaned := r.normalizer.Normalize(raw, dec)
		key := cleaned.Key()
		if seen.Has(key) {
			r.logger.Debug("[reconciler] Duplicate observation skipped: %s @ %s", key.VIN, key.CapturedAt)
			result.Outcomes = append(result.Outcomes, RecordOutcome{Record: raw, State: StateDuplicate})
			continue
		}
		seen.Add(key)

		result.Cleaned = append(result.Cleaned, cleaned)
		result.Outcomes = append(result.Outcomes, RecordOutcome{Record: raw, State: StateNormalized})
	}

	r.logger.Info("[reconciler] %d pending → %d new cleaned, %d duplicate, %d undecoded, %d VINs to flag",
		len(pending)-result.AlreadyDecoded, len(result.Cleaned),
		result.Count(StateDuplicate), result.Count(StateDecodeFailed), len(result.DecodedVINs))
	return result
}
