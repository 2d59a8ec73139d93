package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"station-platform/internal/models"
	"station-platform/pkg/metrics"
)

func seedStations(t *testing.T, repo *fakeRepo) {
	t.Helper()
	vendorA, vendorB := "Azista", "Nanoprecise"
	patna, gaya := "Patna", "Gaya"
	lat, lon := 25.59, 85.13

	records := []*models.StationRecord{
		{StationID: "AWS0001", StationType: models.StationTypeAWS, ObservationDate: syncDate,
			District: &patna, Vendor: &vendorA, Status: models.StatusWorking, Latitude: &lat, Longitude: &lon},
		{StationID: "AWS0002", StationType: models.StationTypeAWS, ObservationDate: syncDate,
			District: &patna, Vendor: &vendorA, Status: models.StatusNonWorking, Latitude: &lat, Longitude: &lon},
		{StationID: "AWS0003", StationType: models.StationTypeAWS, ObservationDate: syncDate,
			District: &gaya, Vendor: &vendorB, Status: models.StatusWorking},
		{StationID: "ARG0001", StationType: models.StationTypeARG, ObservationDate: syncDate,
			District: &gaya, Vendor: &vendorB, Status: models.StatusNonWorking, Latitude: &lat, Longitude: &lon},
	}
	require.NoError(t, repo.UpsertStationsBatch(context.Background(), records))
}

func newStationService(repo *fakeRepo) *StationService {
	return NewStationService(repo, testLogger(), metrics.NewCollectorForTesting())
}

func TestGetStatusSummary(t *testing.T) {
	repo := newFakeRepo()
	seedStations(t, repo)
	svc := newStationService(repo)

	summary, err := svc.GetStatusSummary(context.Background(), models.StationTypeAWS, syncDate)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Working)
	assert.Equal(t, 1, summary.NotWorking)
}

func TestGetMapData_DropsStationsWithoutCoordinates(t *testing.T) {
	repo := newFakeRepo()
	seedStations(t, repo)
	svc := newStationService(repo)

	points, err := svc.GetMapData(context.Background(), models.StationTypeAWS, syncDate, nil)
	require.NoError(t, err)
	require.Len(t, points, 2, "AWS0003 has no coordinates and must be dropped")

	ids := []string{points[0].StationID, points[1].StationID}
	assert.ElementsMatch(t, []string{"AWS0001", "AWS0002"}, ids)
}

func TestGetMapData_StatusFilter(t *testing.T) {
	repo := newFakeRepo()
	seedStations(t, repo)
	svc := newStationService(repo)

	nonWorking := models.StatusNonWorking
	points, err := svc.GetMapData(context.Background(), models.StationTypeAWS, syncDate, &nonWorking)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "AWS0002", points[0].StationID)
	assert.Equal(t, models.StatusNonWorking, points[0].Status)
}

func TestGetVendorSummary(t *testing.T) {
	repo := newFakeRepo()
	seedStations(t, repo)
	svc := newStationService(repo)

	rows, err := svc.GetVendorSummary(context.Background(), models.StationTypeAWS, syncDate)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Azista", rows[0].Vendor)
	assert.Equal(t, 2, rows[0].Total)
	assert.Equal(t, 1, rows[0].Working)
	assert.Equal(t, 1, rows[0].NotWorking)
	assert.Equal(t, "Nanoprecise", rows[1].Vendor)
	assert.Equal(t, 1, rows[1].Total)
}

func TestGetVendorDistrictSummary_StatusFilter(t *testing.T) {
	repo := newFakeRepo()
	seedStations(t, repo)
	svc := newStationService(repo)

	rows, err := svc.GetVendorDistrictSummary(context.Background(), "Azista", models.StationTypeAWS, syncDate, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Patna", rows[0].District)
	assert.Equal(t, 2, rows[0].TotalInstalled)

	working := models.StatusWorking
	rows, err = svc.GetVendorDistrictSummary(context.Background(), "Nanoprecise", models.StationTypeAWS, syncDate, &working)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	nonWorking := models.StatusNonWorking
	rows, err = svc.GetVendorDistrictSummary(context.Background(), "Nanoprecise", models.StationTypeAWS, syncDate, &nonWorking)
	require.NoError(t, err)
	assert.Empty(t, rows, "vendor has no non-working AWS stations")
}

func TestGetBlockFaults(t *testing.T) {
	repo := newFakeRepo()
	seedStations(t, repo)

	fault := &models.FaultRecord{
		StationID:       "AWS0002",
		TempRH:          "NO DATA",
		AP:              "FAULT",
		Agency:          "Azista",
		ObservationDate: syncDate,
	}
	require.NoError(t, repo.UpsertFault(context.Background(), fault))
	_, err := repo.MergeFaults(context.Background(), []*models.FaultRecord{fault}, syncDate)
	require.NoError(t, err)

	svc := newStationService(repo)
	rows, err := svc.GetBlockFaults(context.Background(), "Azista", "Patna", models.StationTypeAWS, syncDate)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the non-working station appears")

	assert.Equal(t, "AWS0002", rows[0].StationID)
	assert.Equal(t, "NO DATA", rows[0].TempRH)
	assert.Equal(t, "FAULT", rows[0].AP)
	assert.Equal(t, "Azista", rows[0].Agency)
}

func TestGetStationHistory(t *testing.T) {
	repo := newFakeRepo()
	vendor := "Azista"
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertStationsBatch(context.Background(), []*models.StationRecord{
		{StationID: "AWS0001", StationType: models.StationTypeAWS, ObservationDate: day1,
			Vendor: &vendor, Status: models.StatusWorking},
		{StationID: "AWS0001", StationType: models.StationTypeAWS, ObservationDate: day2,
			Vendor: &vendor, Status: models.StatusNonWorking},
	}))

	svc := newStationService(repo)
	entries, err := svc.GetStationHistory(context.Background(), "AWS0001", vendor, models.StationTypeAWS)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "2024-01-01", entries[0].Date)
	assert.Equal(t, 1, entries[0].IsWorking)
	assert.Equal(t, "2024-01-02", entries[1].Date)
	assert.Equal(t, 0, entries[1].IsWorking)
}
