package telemetry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
)

const testCSV = `mkd_id,mkd_address,itp_id,itp_name,odpu_id,district,date,itp_cold_water,odpu_hot_water,deviation_ratio,mkd_lat,mkd_lon
B1,Lenina 1,ITP-1,ITP One,M1,Central,2024-06-01,100,70,0.30,55.70,37.60
B1,Lenina 1,ITP-1,ITP One,M1,Central,2024-06-02,100,95,0.05,55.70,37.60
B2,Mira 5,ITP-2,ITP Two,M2,North,2024-06-01,80,76,0.05,55.80,37.50
B2,Mira 5,ITP-2,ITP Two,M2,North,2023-11-01,90,60,0.3333,55.80,37.50
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDataset(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	stem := filepath.Join(dir, "telemetry")
	require.NoError(t, os.WriteFile(stem+".csv", []byte(contents), 0o644))
	return stem
}

func TestOpen_CSV(t *testing.T) {
	store, err := Open(writeDataset(t, testCSV), testLogger())
	require.NoError(t, err)

	assert.Equal(t, 4, store.Len())
	assert.Equal(t, []int{2023, 2024}, store.Years())
}

func TestOpen_MissingDataset(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing at")
}

func TestOpen_MissingColumns(t *testing.T) {
	stem := writeDataset(t, "mkd_id,date\nB1,2024-06-01\n")
	_, err := Open(stem, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	// Missing columns are reported sorted.
	assert.Contains(t, err.Error(), "deviation_ratio, district, itp_cold_water")
}

func TestStore_Records(t *testing.T) {
	store, err := Open(writeDataset(t, testCSV), testLogger())
	require.NoError(t, err)

	t.Run("filter by building and year", func(t *testing.T) {
		records := store.Records("B1", 2024)
		require.Len(t, records, 2)
		assert.True(t, records[0].Date.Before(records[1].Date))
		assert.InDelta(t, 0.30, records[0].DeviationRatio, 1e-9)
		assert.True(t, records[0].Anomaly)
		assert.False(t, records[1].Anomaly)
	})

	t.Run("filter by year only", func(t *testing.T) {
		assert.Len(t, store.Records("", 2024), 3)
		assert.Len(t, store.Records("", 2023), 1)
	})

	t.Run("no filters returns everything", func(t *testing.T) {
		assert.Len(t, store.Records("", 0), 4)
	})

	t.Run("unknown building", func(t *testing.T) {
		assert.Empty(t, store.Records("B99", 2024))
	})
}

func TestStore_ResolveAnomaly(t *testing.T) {
	store, err := Open(writeDataset(t, testCSV), testLogger())
	require.NoError(t, err)

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	id := domain.AnomalyID("B1", date, "M1")

	ctx, ok := store.ResolveAnomaly(id)
	require.True(t, ok)
	assert.Equal(t, "B1", ctx.MkdID)
	assert.Equal(t, "Lenina 1", ctx.MkdAddress)
	assert.Equal(t, "ITP-1", ctx.ItpID)
	assert.Equal(t, "M1", ctx.OdpuID)
	assert.Equal(t, "Central", ctx.District)
	assert.Equal(t, "2024-06-01", ctx.Date)

	_, ok = store.ResolveAnomaly("000000000000")
	assert.False(t, ok)
}

func TestStore_ExplicitAnomalyColumn(t *testing.T) {
	const withFlag = `mkd_id,mkd_address,itp_id,itp_name,odpu_id,district,date,itp_cold_water,odpu_hot_water,deviation_ratio,anomaly
B1,Lenina 1,ITP-1,ITP One,M1,Central,2024-06-01,100,98,0.02,YES
B1,Lenina 1,ITP-1,ITP One,M1,Central,2024-06-02,100,97,0.03,false
B1,Lenina 1,ITP-1,ITP One,M1,Central,2024-06-03,100,70,0.30,false
`
	store, err := Open(writeDataset(t, withFlag), testLogger())
	require.NoError(t, err)

	records := store.Records("B1", 2024)
	require.Len(t, records, 3)
	assert.True(t, records[0].Anomaly, "explicit truthy flag wins")
	assert.False(t, records[1].Anomaly)
	assert.True(t, records[2].Anomaly, "threshold still applies despite explicit false")
}

func TestOpen_ParquetPreferred(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, "telemetry")

	rows := []parquetRow{
		{
			MkdID: "B1", MkdAddress: "Lenina 1", MkdLat: 55.7, MkdLon: 37.6,
			ItpID: "ITP-1", ItpName: "ITP One", ItpLat: 55.7, ItpLon: 37.6,
			OdpuID: "M1", District: "Central",
			Date:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			ColdIntake: 100, HotOutput: 70, DeviationRatio: 0.30,
		},
	}
	require.NoError(t, parquet.WriteFile(stem+".parquet", rows))

	// A CSV with different contents sits beside the parquet file; the
	// parquet file must win.
	require.NoError(t, os.WriteFile(stem+".csv", []byte(testCSV), 0o644))

	store, err := Open(stem, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	records := store.Records("B1", 2024)
	require.Len(t, records, 1)
	assert.True(t, records[0].Anomaly)
}

func TestOpen_CorruptParquetFallsBackToCSV(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, "telemetry")
	require.NoError(t, os.WriteFile(stem+".parquet", []byte("not parquet"), 0o644))
	require.NoError(t, os.WriteFile(stem+".csv", []byte(testCSV), 0o644))

	store, err := Open(stem, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, store.Len())
}
