package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx/types"

	"station-platform/internal/models"
	"station-platform/internal/repository"
)

// fakeRepo is an in-memory StationRepository mirroring the Postgres
// implementation's upsert and merge semantics.
type fakeRepo struct {
	stations map[string]*models.StationRecord
	faults   map[string]*models.FaultRecord

	upsertErr error
	mergeErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stations: make(map[string]*models.StationRecord),
		faults:   make(map[string]*models.FaultRecord),
	}
}

func stationKey(id string, st models.StationType, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", id, st, date.Format("2006-01-02"))
}

func faultKey(id string, date time.Time) string {
	return fmt.Sprintf("%s|%s", id, date.Format("2006-01-02"))
}

func (f *fakeRepo) UpsertStationsBatch(_ context.Context, records []*models.StationRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, rec := range records {
		clone := *rec
		clone.FaultData = types.NullJSONText{}
		f.stations[stationKey(rec.StationID, rec.StationType, rec.ObservationDate)] = &clone
	}
	return nil
}

func (f *fakeRepo) GetStations(_ context.Context, filter repository.StationFilter) ([]*models.StationRecord, error) {
	var out []*models.StationRecord
	for _, rec := range f.stations {
		if filter.StationType != nil && rec.StationType != *filter.StationType {
			continue
		}
		if filter.Date != nil && !rec.ObservationDate.Equal(*filter.Date) {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Vendor != nil && (rec.Vendor == nil || *rec.Vendor != *filter.Vendor) {
			continue
		}
		if filter.District != nil && (rec.District == nil || *rec.District != *filter.District) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out, nil
}

func (f *fakeRepo) GetStation(_ context.Context, stationID string, st models.StationType, date time.Time) (*models.StationRecord, error) {
	rec, ok := f.stations[stationKey(stationID, st, date)]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "station", ID: stationID}
	}
	return rec, nil
}

func (f *fakeRepo) StatusSummary(ctx context.Context, st models.StationType, date time.Time) (*repository.StatusSummary, error) {
	recs, _ := f.GetStations(ctx, repository.StationFilter{StationType: &st, Date: &date})
	summary := &repository.StatusSummary{}
	for _, rec := range recs {
		if rec.Status == models.StatusWorking {
			summary.Working++
		} else {
			summary.NotWorking++
		}
	}
	return summary, nil
}

func (f *fakeRepo) VendorSummary(ctx context.Context, st models.StationType, date time.Time) ([]*repository.VendorSummaryRow, error) {
	recs, _ := f.GetStations(ctx, repository.StationFilter{StationType: &st, Date: &date})
	byVendor := make(map[string]*repository.VendorSummaryRow)
	for _, rec := range recs {
		if rec.Vendor == nil {
			continue
		}
		row, ok := byVendor[*rec.Vendor]
		if !ok {
			row = &repository.VendorSummaryRow{Vendor: *rec.Vendor}
			byVendor[*rec.Vendor] = row
		}
		row.Total++
		if rec.Status == models.StatusWorking {
			row.Working++
		} else {
			row.NotWorking++
		}
	}
	var rows []*repository.VendorSummaryRow
	for _, row := range byVendor {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Vendor < rows[j].Vendor })
	return rows, nil
}

func (f *fakeRepo) VendorDistrictSummary(ctx context.Context, vendor string, st models.StationType, date time.Time) ([]*repository.DistrictSummaryRow, error) {
	recs, _ := f.GetStations(ctx, repository.StationFilter{StationType: &st, Date: &date, Vendor: &vendor})
	byDistrict := make(map[string]*repository.DistrictSummaryRow)
	for _, rec := range recs {
		district := ""
		if rec.District != nil {
			district = *rec.District
		}
		row, ok := byDistrict[district]
		if !ok {
			row = &repository.DistrictSummaryRow{District: district, Agency: vendor}
			byDistrict[district] = row
		}
		row.TotalInstalled++
		if rec.Status == models.StatusWorking {
			row.Working++
		} else {
			row.NonWorking++
		}
	}
	var rows []*repository.DistrictSummaryRow
	for _, row := range byDistrict {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TotalInstalled > rows[j].TotalInstalled })
	return rows, nil
}

func (f *fakeRepo) StationHistory(_ context.Context, stationID, vendor string, st models.StationType) ([]*repository.HistoryPoint, error) {
	var points []*repository.HistoryPoint
	for _, rec := range f.stations {
		if rec.StationID != stationID || rec.StationType != st {
			continue
		}
		if rec.Vendor == nil || *rec.Vendor != vendor {
			continue
		}
		working := 0
		if rec.Status == models.StatusWorking {
			working = 1
		}
		points = append(points, &repository.HistoryPoint{Date: rec.ObservationDate, IsWorking: working})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (f *fakeRepo) UpsertFault(_ context.Context, fault *models.FaultRecord) error {
	clone := *fault
	f.faults[faultKey(fault.StationID, fault.ObservationDate)] = &clone
	return nil
}

func (f *fakeRepo) MergeFaults(_ context.Context, faults []*models.FaultRecord, date time.Time) (int64, error) {
	if f.mergeErr != nil {
		return 0, f.mergeErr
	}
	var merged int64
	for _, fault := range faults {
		payload, err := json.Marshal(fault)
		if err != nil {
			return merged, err
		}
		for _, rec := range f.stations {
			if rec.StationID != fault.StationID || !rec.ObservationDate.Equal(date) {
				continue
			}
			if rec.Status != models.StatusNonWorking {
				continue
			}
			rec.FaultData = types.NullJSONText{JSONText: payload, Valid: true}
			merged++
		}
	}
	return merged, nil
}

func (f *fakeRepo) ReapplyFaults(ctx context.Context, date time.Time) (int64, error) {
	var stored []*models.FaultRecord
	for _, fault := range f.faults {
		if fault.ObservationDate.Equal(date) {
			stored = append(stored, fault)
		}
	}
	return f.MergeFaults(ctx, stored, date)
}

func (f *fakeRepo) HealthCheck(context.Context) error { return nil }
