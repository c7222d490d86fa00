package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-data-pipeline/decoder"
	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/storage"
	"vehicle-data-pipeline/utils"
)

// knownVINs is what the fake decoder recognizes; anything else gets a Message.
var knownVINs = map[string]map[string]string{
	"1HGCM82633A004352": {"Make": "Honda", "Model": "Accord", "ModelYear": "2003", "Trim": "EX"},
	"5YJ3E1EA7KF317000": {"Make": "Tesla", "Model": "Model 3", "ModelYear": "2019", "Trim": "Long Range"},
}

func newFakeDecoder(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var results []map[string]string
		for _, vin := range strings.Split(r.PostForm.Get("data"), ";") {
			fields, ok := knownVINs[vin]
			if !ok {
				results = append(results, map[string]string{"Message": "Invalid VIN " + vin})
				continue
			}
			res := map[string]string{"VIN": vin}
			for k, v := range fields {
				res[k] = v
			}
			results = append(results, res)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"Count": len(results), "Results": results})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	store, err := storage.Open("sqlite", ":memory:", storage.Tables{
		Raw: "vehicle_data", Cleaned: "cleaned_vehicle_data", Maintenance: "car_maintenance_data",
	}, utils.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func newTestDecodeService(t *testing.T, store storage.VehicleStore, calls *int64) *DecodeService {
	srv := newFakeDecoder(t, calls)
	logger := utils.NewDiscardLogger()
	client := decoder.NewClient(decoder.Options{URL: srv.URL, BatchSize: 50, Concurrency: 15, Timeout: 5 * time.Second}, logger)
	return NewDecodeService(store, client, NewReconciler(NewNormalizer(), logger), logger)
}

func TestDecodeServiceEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	var calls int64
	svc := newTestDecodeService(t, store, &calls)

	require.NoError(t, store.InsertRaw(ctx, []*models.RawVehicleRecord{
		rawRecord("1HGCM82633A004352", captureTime),
		rawRecord("BADVIN00000000000", captureTime),
		rawRecord("", captureTime),
	}))

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pending)
	assert.Equal(t, 2, report.UniqueVINs)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Diagnostics)
	assert.Equal(t, int64(1), report.Flagged)

	cleaned, err := store.FetchCleaned(ctx)
	require.NoError(t, err)
	require.Len(t, cleaned, 1)
	c := cleaned[0]
	assert.Equal(t, "1HGCM82633A004352", c.VIN)
	assert.Equal(t, "Honda", c.Make)
	assert.Equal(t, "Accord", c.Model)
	require.NotNil(t, c.Year)
	assert.Equal(t, 2003, *c.Year)
	assert.Equal(t, "EX", c.Trim)
	assert.Equal(t, models.ColorBlack, c.ExteriorColor)
	assert.True(t, c.CapturedAt.Equal(captureTime))

	pending, err := store.FetchPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2, "undecodable and VIN-less rows stay pending")
	for _, p := range pending {
		assert.NotEqual(t, "1HGCM82633A004352", p.VIN)
	}
}

func TestDecodeServiceSecondRunInsertsNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	var calls int64
	svc := newTestDecodeService(t, store, &calls)

	require.NoError(t, store.InsertRaw(ctx, []*models.RawVehicleRecord{
		rawRecord("1HGCM82633A004352", captureTime),
		rawRecord("5YJ3E1EA7KF317000", captureTime),
	}))

	first, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Pending)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "no decoder call when nothing is pending")
}

func TestDecodeServiceNewObservationOfKnownVIN(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	var calls int64
	svc := newTestDecodeService(t, store, &calls)

	require.NoError(t, store.InsertRaw(ctx, []*models.RawVehicleRecord{rawRecord("1HGCM82633A004352", captureTime)}))
	_, err := svc.Run(ctx)
	require.NoError(t, err)

	later := rawRecord("1HGCM82633A004352", captureTime.Add(48*time.Hour))
	later.Price = "$23,500"
	require.NoError(t, store.InsertRaw(ctx, []*models.RawVehicleRecord{later}))

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	cleaned, err := store.FetchCleaned(ctx)
	require.NoError(t, err)
	require.Len(t, cleaned, 2)
	assert.Equal(t, 23500.0, *cleaned[1].Price)
}

func TestDecodeServiceFlagsPaddedVIN(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	var calls int64
	svc := newTestDecodeService(t, store, &calls)

	require.NoError(t, store.InsertRaw(ctx, []*models.RawVehicleRecord{rawRecord(" 1HGCM82633A004352 ", captureTime)}))

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, int64(1), report.Flagged)

	pending, err := store.FetchPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "padded VIN must not stay pending")
}

// flakyFlagStore fails MarkDecoded once, simulating a crash between writes.
type flakyFlagStore struct {
	*storage.SQLStore
	failures int
}

func (f *flakyFlagStore) MarkDecoded(ctx context.Context, vins []string) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("connection reset")
	}
	return f.SQLStore.MarkDecoded(ctx, vins)
}

func TestDecodeServiceRecoversFromFailedFlagUpdate(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	store := &flakyFlagStore{SQLStore: base, failures: 1}
	var calls int64
	svc := newTestDecodeService(t, store, &calls)

	require.NoError(t, base.InsertRaw(ctx, []*models.RawVehicleRecord{rawRecord("1HGCM82633A004352", captureTime)}))

	_, err := svc.Run(ctx)
	require.Error(t, err)

	cleaned, err := base.FetchCleaned(ctx)
	require.NoError(t, err)
	require.Len(t, cleaned, 1, "cleaned insert committed before the flag update")

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, int64(1), report.Flagged)

	cleaned, err = base.FetchCleaned(ctx)
	require.NoError(t, err)
	assert.Len(t, cleaned, 1)
}

// stubDecoder returns canned chunk results.
type stubDecoder struct {
	results []decoder.ChunkResult
}

func (s stubDecoder) Decode(context.Context, []string) []decoder.ChunkResult {
	return s.results
}

func TestDecodeServiceAllChunksFailed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	logger := utils.NewDiscardLogger()
	svc := NewDecodeService(store, stubDecoder{results: []decoder.ChunkResult{
		{Index: 0, VINs: []string{"1HGCM82633A004352"}, Status: 503, Err: decoder.ErrUnexpectedStatus},
	}}, NewReconciler(NewNormalizer(), logger), logger)

	require.NoError(t, store.InsertRaw(ctx, []*models.RawVehicleRecord{rawRecord("1HGCM82633A004352", captureTime)}))

	report, err := svc.Run(ctx)
	require.NoError(t, err, "a run with only failed chunks still succeeds")
	assert.Equal(t, 1, report.FailedChunks)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Undecoded)
	assert.Zero(t, report.Flagged)
}

func TestUniqueVINs(t *testing.T) {
	recs := []*models.RawVehicleRecord{{VIN: "A"}, {VIN: ""}, {VIN: "B"}, {VIN: "A"}, {VIN: " "}}
	assert.Equal(t, []string{"A", "B"}, uniqueVINs(recs))
}
