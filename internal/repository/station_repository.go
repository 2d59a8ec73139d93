package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"station-platform/internal/models"
	"station-platform/pkg/database"
	"station-platform/pkg/logging"
	"station-platform/pkg/metrics"
)

// StationRepository provides data access for station status and fault data.
type StationRepository interface {
	// Station store
	UpsertStationsBatch(ctx context.Context, records []*models.StationRecord) error
	GetStations(ctx context.Context, filter StationFilter) ([]*models.StationRecord, error)
	GetStation(ctx context.Context, stationID string, st models.StationType, date time.Time) (*models.StationRecord, error)

	// Summary queries
	StatusSummary(ctx context.Context, st models.StationType, date time.Time) (*StatusSummary, error)
	VendorSummary(ctx context.Context, st models.StationType, date time.Time) ([]*VendorSummaryRow, error)
	VendorDistrictSummary(ctx context.Context, vendor string, st models.StationType, date time.Time) ([]*DistrictSummaryRow, error)
	StationHistory(ctx context.Context, stationID, vendor string, st models.StationType) ([]*HistoryPoint, error)

	// Fault store and merge stage
	UpsertFault(ctx context.Context, fault *models.FaultRecord) error
	MergeFaults(ctx context.Context, faults []*models.FaultRecord, date time.Time) (int64, error)
	ReapplyFaults(ctx context.Context, date time.Time) (int64, error)

	HealthCheck(ctx context.Context) error
}

// StationFilter defines filters for querying station records.
type StationFilter struct {
	StationType *models.StationType
	Date        *time.Time
	Status      *models.Status
	Vendor      *string
	District    *string
}

// StatusSummary is the working/not-working tally for one type and date.
type StatusSummary struct {
	Working    int `json:"working"`
	NotWorking int `json:"not_working"`
}

// VendorSummaryRow is the per-vendor status breakdown.
type VendorSummaryRow struct {
	Vendor     string `json:"vendor" db:"vendor"`
	Total      int    `json:"total" db:"total"`
	Working    int    `json:"working" db:"working"`
	NotWorking int    `json:"not_working" db:"not_working"`
}

// DistrictSummaryRow is the per-district breakdown for one vendor.
type DistrictSummaryRow struct {
	District       string `json:"district" db:"district"`
	TotalInstalled int    `json:"total_installed" db:"total_installed"`
	Working        int    `json:"working" db:"working"`
	NonWorking     int    `json:"non_working" db:"non_working"`
	Agency         string `json:"agency" db:"agency"`
}

// HistoryPoint is one day of a station's working/not-working history.
type HistoryPoint struct {
	Date      time.Time `json:"-" db:"observation_date"`
	IsWorking int       `json:"is_working" db:"is_working"`
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

type stationRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStationRepository creates a new station repository.
func NewStationRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) StationRepository {
	return &stationRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertStationsBatch writes station records in one transaction, keyed by
// (station_id, station_type, observation_date). A conflicting row is fully
// replaced, including clearing fault_data; the merge stage runs again after
// every ingest pass, so enrichment is restored rather than preserved here.
func (r *stationRepository) UpsertStationsBatch(ctx context.Context, records []*models.StationRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_BATCH_UPSERT] Station batch upsert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (
			station_id, station_type, observation_date,
			district, block, panchayat, latitude, longitude,
			vendor, status, recorded_time, fault_data, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, $12)
		ON CONFLICT (station_id, station_type, observation_date) DO UPDATE SET
			district = EXCLUDED.district,
			block = EXCLUDED.block,
			panchayat = EXCLUDED.panchayat,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			vendor = EXCLUDED.vendor,
			status = EXCLUDED.status,
			recorded_time = EXCLUDED.recorded_time,
			fault_data = NULL,
			created_at = EXCLUDED.created_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.StationID,
			rec.StationType,
			rec.ObservationDate,
			rec.District,
			rec.Block,
			rec.Panchayat,
			rec.Latitude,
			rec.Longitude,
			rec.Vendor,
			rec.Status,
			rec.RecordedTime,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", rec.StationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetStations retrieves station records matching the filter.
func (r *stationRepository) GetStations(ctx context.Context, filter StationFilter) ([]*models.StationRecord, error) {
	query := `
		SELECT station_id, station_type, observation_date,
		       district, block, panchayat, latitude, longitude,
		       vendor, status, recorded_time, fault_data, created_at
		FROM stations
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.StationType != nil {
		query += fmt.Sprintf(" AND station_type = $%d", argNum)
		args = append(args, *filter.StationType)
		argNum++
	}
	if filter.Date != nil {
		query += fmt.Sprintf(" AND observation_date = $%d", argNum)
		args = append(args, *filter.Date)
		argNum++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}
	if filter.Vendor != nil {
		query += fmt.Sprintf(" AND vendor = $%d", argNum)
		args = append(args, *filter.Vendor)
		argNum++
	}
	if filter.District != nil {
		query += fmt.Sprintf(" AND district = $%d", argNum)
		args = append(args, *filter.District)
		argNum++
	}

	query += " ORDER BY station_id"

	var stations []*models.StationRecord
	if err := r.db.SelectContext(ctx, "get_stations", &stations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get stations: %w", err)
	}

	return stations, nil
}

// GetStation retrieves one station record by composite key.
func (r *stationRepository) GetStation(ctx context.Context, stationID string, st models.StationType, date time.Time) (*models.StationRecord, error) {
	query := `
		SELECT station_id, station_type, observation_date,
		       district, block, panchayat, latitude, longitude,
		       vendor, status, recorded_time, fault_data, created_at
		FROM stations
		WHERE station_id = $1 AND station_type = $2 AND observation_date = $3
	`

	var rec models.StationRecord
	err := r.db.GetContext(ctx, "get_station", &rec, query, stationID, st, date)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "station",
			ID:       fmt.Sprintf("%s:%s:%s", stationID, st, date.Format("2006-01-02")),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}

	return &rec, nil
}

// StatusSummary tallies working and non-working stations for a type and date.
func (r *stationRepository) StatusSummary(ctx context.Context, st models.StationType, date time.Time) (*StatusSummary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1) AS working,
			COUNT(*) FILTER (WHERE status <> $1) AS not_working
		FROM stations
		WHERE station_type = $2 AND observation_date = $3
	`

	var result struct {
		Working    int `db:"working"`
		NotWorking int `db:"not_working"`
	}
	if err := r.db.GetContext(ctx, "status_summary", &result, query, models.StatusWorking, st, date); err != nil {
		return nil, fmt.Errorf("failed to compute status summary: %w", err)
	}

	return &StatusSummary{Working: result.Working, NotWorking: result.NotWorking}, nil
}

// VendorSummary breaks down station status per vendor. Rows without a
// vendor attribution are excluded.
func (r *stationRepository) VendorSummary(ctx context.Context, st models.StationType, date time.Time) ([]*VendorSummaryRow, error) {
	query := `
		SELECT vendor,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = $1) AS working,
		       COUNT(*) FILTER (WHERE status <> $1) AS not_working
		FROM stations
		WHERE station_type = $2 AND observation_date = $3 AND vendor IS NOT NULL
		GROUP BY vendor
		ORDER BY vendor
	`

	var rows []*VendorSummaryRow
	if err := r.db.SelectContext(ctx, "vendor_summary", &rows, query, models.StatusWorking, st, date); err != nil {
		return nil, fmt.Errorf("failed to compute vendor summary: %w", err)
	}

	return rows, nil
}

// VendorDistrictSummary breaks down one vendor's stations per district,
// largest installations first.
func (r *stationRepository) VendorDistrictSummary(ctx context.Context, vendor string, st models.StationType, date time.Time) ([]*DistrictSummaryRow, error) {
	query := `
		SELECT COALESCE(district, '') AS district,
		       COUNT(*) AS total_installed,
		       COUNT(*) FILTER (WHERE status = $1) AS working,
		       COUNT(*) FILTER (WHERE status = $2) AS non_working,
		       $3::text AS agency
		FROM stations
		WHERE station_type = $4 AND observation_date = $5 AND vendor = $3
		GROUP BY district
		ORDER BY total_installed DESC
	`

	var rows []*DistrictSummaryRow
	err := r.db.SelectContext(ctx, "vendor_district_summary", &rows, query,
		models.StatusWorking, models.StatusNonWorking, vendor, st, date)
	if err != nil {
		return nil, fmt.Errorf("failed to compute district summary: %w", err)
	}

	return rows, nil
}

// StationHistory returns one station's day-by-day working flag, oldest first.
func (r *stationRepository) StationHistory(ctx context.Context, stationID, vendor string, st models.StationType) ([]*HistoryPoint, error) {
	query := `
		SELECT observation_date,
		       CASE WHEN status = $1 THEN 1 ELSE 0 END AS is_working
		FROM stations
		WHERE station_id = $2 AND vendor = $3 AND station_type = $4
		ORDER BY observation_date
	`

	var points []*HistoryPoint
	err := r.db.SelectContext(ctx, "station_history", &points, query,
		models.StatusWorking, stationID, vendor, st)
	if err != nil {
		return nil, fmt.Errorf("failed to get station history: %w", err)
	}

	return points, nil
}

// UpsertFault writes one fault detail record keyed by (station_id,
// observation_date), last write wins.
func (r *stationRepository) UpsertFault(ctx context.Context, fault *models.FaultRecord) error {
	query := `
		INSERT INTO station_faults (
			station_id, observation_date,
			temp_rh, rf, ws, ap, sm, sr, data_pkt,
			agency, source_file, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (station_id, observation_date) DO UPDATE SET
			temp_rh = EXCLUDED.temp_rh,
			rf = EXCLUDED.rf,
			ws = EXCLUDED.ws,
			ap = EXCLUDED.ap,
			sm = EXCLUDED.sm,
			sr = EXCLUDED.sr,
			data_pkt = EXCLUDED.data_pkt,
			agency = EXCLUDED.agency,
			source_file = EXCLUDED.source_file,
			created_at = EXCLUDED.created_at
	`

	_, err := r.db.ExecContext(ctx, "upsert_fault", query,
		fault.StationID,
		fault.ObservationDate,
		fault.TempRH,
		fault.RF,
		fault.WS,
		fault.AP,
		fault.SM,
		fault.SR,
		fault.DataPkt,
		fault.Agency,
		fault.SourceFile,
		fault.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fault for %s: %w", fault.StationID, err)
	}

	return nil
}

// MergeFaults attaches each fault payload to every station record matching
// (station_id, observation_date) that is currently non-working. Faults for
// working stations or unknown station ids match zero rows, which is not an
// error. Returns the number of station rows updated; re-running with the
// same inputs produces the same end state.
func (r *stationRepository) MergeFaults(ctx context.Context, faults []*models.FaultRecord, date time.Time) (int64, error) {
	query := `
		UPDATE stations
		SET fault_data = $1
		WHERE station_id = $2 AND observation_date = $3 AND status = $4
	`

	var merged int64
	for _, fault := range faults {
		payload, err := json.Marshal(fault)
		if err != nil {
			return merged, fmt.Errorf("failed to encode fault for %s: %w", fault.StationID, err)
		}

		result, err := r.db.ExecContext(ctx, "merge_fault", query,
			payload, fault.StationID, date, models.StatusNonWorking)
		if err != nil {
			return merged, fmt.Errorf("failed to merge fault for %s: %w", fault.StationID, err)
		}

		affected, err := result.RowsAffected()
		if err == nil {
			merged += affected
		}
	}

	r.metrics.FaultsMergedTotal.Add(float64(merged))

	return merged, nil
}

// ReapplyFaults re-attaches the standing fault store onto non-working
// stations for a date. Station ingest fully overwrites rows, so this runs
// after every ingest pass to restore enrichment when no new fault files
// arrived.
func (r *stationRepository) ReapplyFaults(ctx context.Context, date time.Time) (int64, error) {
	query := `
		UPDATE stations s
		SET fault_data = jsonb_build_object(
			'station_id', f.station_id,
			'temp_rh', f.temp_rh,
			'rf', f.rf,
			'ws', f.ws,
			'ap', f.ap,
			'sm', f.sm,
			'sr', f.sr,
			'data_pkt', f.data_pkt,
			'agency', f.agency,
			'source_file', f.source_file,
			'observation_date', to_char(f.observation_date, 'YYYY-MM-DD"T"00:00:00"Z"')
		)
		FROM station_faults f
		WHERE f.station_id = s.station_id
		  AND f.observation_date = s.observation_date
		  AND s.observation_date = $1
		  AND s.status = $2
	`

	result, err := r.db.ExecContext(ctx, "reapply_faults", query, date, models.StatusNonWorking)
	if err != nil {
		return 0, fmt.Errorf("failed to reapply faults: %w", err)
	}

	return result.RowsAffected()
}

// HealthCheck performs a repository health check.
func (r *stationRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
