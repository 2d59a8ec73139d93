package services

import (
	"context"
	"time"

	"station-platform/internal/models"
	"station-platform/internal/repository"
	"station-platform/pkg/logging"
	"station-platform/pkg/metrics"
)

// StationService handles the read side: summaries, map data, and fault
// listings over the station store.
type StationService struct {
	repo    repository.StationRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStationService creates a new station query service.
func NewStationService(repo repository.StationRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StationService {
	return &StationService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// MapPoint is one geo-located station for the dashboard map. Only stations
// with both coordinates present are mapped.
type MapPoint struct {
	StationID string        `json:"station_id"`
	District  string        `json:"district"`
	Block     string        `json:"block"`
	Panchayat string        `json:"panchayat"`
	Status    models.Status `json:"status"`
	Lat       float64       `json:"lat"`
	Lon       float64       `json:"lon"`
}

// BlockFaultRow is one non-working station with its flattened fault detail.
type BlockFaultRow struct {
	Block     string `json:"block"`
	StationID string `json:"station_id"`
	TempRH    string `json:"temp_rh"`
	RF        string `json:"rf"`
	WS        string `json:"ws"`
	AP        string `json:"ap"`
	SM        string `json:"sm"`
	SR        string `json:"sr"`
	DataPkt   string `json:"data_pkt"`
	Agency    string `json:"agency"`
}

// HistoryEntry is one day of a station's working history.
type HistoryEntry struct {
	Date      string `json:"date"`
	IsWorking int    `json:"is_working"`
}

// GetStatusSummary tallies working/not-working stations for a type and date.
func (s *StationService) GetStatusSummary(ctx context.Context, st models.StationType, date time.Time) (*repository.StatusSummary, error) {
	return s.repo.StatusSummary(ctx, st, date)
}

// GetMapData returns geo-located stations for a type and date, optionally
// filtered by status. Stations missing either coordinate are dropped.
func (s *StationService) GetMapData(ctx context.Context, st models.StationType, date time.Time, status *models.Status) ([]*MapPoint, error) {
	filter := repository.StationFilter{
		StationType: &st,
		Date:        &date,
		Status:      status,
	}

	stations, err := s.repo.GetStations(ctx, filter)
	if err != nil {
		return nil, err
	}

	points := make([]*MapPoint, 0, len(stations))
	for _, rec := range stations {
		if rec.Latitude == nil || rec.Longitude == nil {
			continue
		}
		points = append(points, &MapPoint{
			StationID: rec.StationID,
			District:  stringOrEmpty(rec.District),
			Block:     stringOrEmpty(rec.Block),
			Panchayat: stringOrEmpty(rec.Panchayat),
			Status:    rec.Status,
			Lat:       *rec.Latitude,
			Lon:       *rec.Longitude,
		})
	}

	return points, nil
}

// GetVendorSummary returns the per-vendor status breakdown.
func (s *StationService) GetVendorSummary(ctx context.Context, st models.StationType, date time.Time) ([]*repository.VendorSummaryRow, error) {
	return s.repo.VendorSummary(ctx, st, date)
}

// GetVendorDistrictSummary returns one vendor's per-district breakdown.
// A status filter drops districts with zero stations in that status.
func (s *StationService) GetVendorDistrictSummary(ctx context.Context, vendor string, st models.StationType, date time.Time, status *models.Status) ([]*repository.DistrictSummaryRow, error) {
	rows, err := s.repo.VendorDistrictSummary(ctx, vendor, st, date)
	if err != nil {
		return nil, err
	}

	if status == nil {
		return rows, nil
	}

	filtered := make([]*repository.DistrictSummaryRow, 0, len(rows))
	for _, row := range rows {
		switch *status {
		case models.StatusWorking:
			if row.Working == 0 {
				continue
			}
		case models.StatusNonWorking:
			if row.NonWorking == 0 {
				continue
			}
		}
		filtered = append(filtered, row)
	}

	return filtered, nil
}

// GetBlockFaults lists a vendor's non-working stations in one district,
// each with its merged fault detail flattened in. Stations without merged
// detail still appear, with empty channel values.
func (s *StationService) GetBlockFaults(ctx context.Context, vendor, district string, st models.StationType, date time.Time) ([]*BlockFaultRow, error) {
	nonWorking := models.StatusNonWorking
	filter := repository.StationFilter{
		StationType: &st,
		Date:        &date,
		Status:      &nonWorking,
		Vendor:      &vendor,
		District:    &district,
	}

	stations, err := s.repo.GetStations(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]*BlockFaultRow, 0, len(stations))
	for _, rec := range stations {
		row := &BlockFaultRow{
			Block:     stringOrEmpty(rec.Block),
			StationID: rec.StationID,
		}
		if fault, ok := rec.Fault(); ok {
			row.TempRH = fault.TempRH
			row.RF = fault.RF
			row.WS = fault.WS
			row.AP = fault.AP
			row.SM = fault.SM
			row.SR = fault.SR
			row.DataPkt = fault.DataPkt
			row.Agency = fault.Agency
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// GetStationHistory returns a station's day-by-day working flag.
func (s *StationService) GetStationHistory(ctx context.Context, stationID, vendor string, st models.StationType) ([]*HistoryEntry, error) {
	points, err := s.repo.StationHistory(ctx, stationID, vendor, st)
	if err != nil {
		return nil, err
	}

	entries := make([]*HistoryEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, &HistoryEntry{
			Date:      p.Date.Format("2006-01-02"),
			IsWorking: p.IsWorking,
		})
	}

	return entries, nil
}

// HealthCheck delegates to the repository.
func (s *StationService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
