package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"station-platform/internal/ingest"
	"station-platform/internal/locator"
	"station-platform/internal/models"
	"station-platform/internal/repository"
	"station-platform/pkg/logging"
	"station-platform/pkg/metrics"
)

// ResourceLocator finds dated CSV resources on the upstream indexes.
type ResourceLocator interface {
	LocateStationCSV(ctx context.Context, st models.StationType, date time.Time) (string, error)
	LocateFaultFolder(ctx context.Context, date time.Time) (string, error)
	ListFaultFiles(ctx context.Context, folderURL string) ([]string, error)
}

// CSVFetcher downloads and parses CSV resources.
type CSVFetcher interface {
	FetchCSV(ctx context.Context, url string) ([]ingest.Row, error)
}

// SyncService runs the daily ingestion pipeline: per station type
// Locate -> Fetch -> Parse -> Normalize -> Upsert, then the fault-detail
// pipeline and merge stage. Failures are isolated per leg: one station
// type failing never blocks the other type or the fault merge.
type SyncService struct {
	locator ResourceLocator
	fetcher CSVFetcher
	repo    repository.StationRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	RunID            string
	Date             time.Time
	StationsUpserted map[models.StationType]int
	FaultRecords     int
	FaultsMerged     int64
	Errors           []string
	Duration         time.Duration
}

// NewSyncService creates a sync orchestrator.
func NewSyncService(
	loc ResourceLocator,
	fetcher CSVFetcher,
	repo repository.StationRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *SyncService {
	return &SyncService{
		locator: loc,
		fetcher: fetcher,
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
		now:     time.Now,
	}
}

// RunSync executes a full sync for one observation date. Per-leg failures
// are collected into the result rather than aborting the run; the run
// itself never brings the hosting process down.
func (s *SyncService) RunSync(ctx context.Context, date time.Time) *SyncResult {
	start := s.now()
	date = truncateToDate(date)

	result := &SyncResult{
		RunID:            uuid.NewString(),
		Date:             date,
		StationsUpserted: make(map[models.StationType]int),
	}
	ctx = logging.WithRunID(ctx, result.RunID)

	s.logger.Info(ctx, "[SYNC_START] Sync run starting", logging.Fields{
		"date": date.Format("2006-01-02"),
	})

	for _, st := range models.KnownStationTypes {
		count, err := s.syncStationType(ctx, st, date)
		if err != nil {
			var notFound *locator.NotFoundError
			if errors.As(err, &notFound) {
				s.metrics.RecordSyncError("not_found")
				s.logger.Warn(ctx, "[SYNC_TYPE_SKIPPED] No report published for station type", logging.Fields{
					"station_type": st,
					"date":         date.Format("2006-01-02"),
				})
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("station sync %s: %v", st, err))
			s.recordLegError(ctx, err, logging.Fields{"station_type": string(st)})
			continue
		}
		result.StationsUpserted[st] = count
		s.metrics.StationsUpsertedTotal.WithLabelValues(string(st)).Add(float64(count))
	}

	// The fault stage always runs after station ingest for the date:
	// upserting a station row clears its fault_data, so enrichment must be
	// re-established even when no new fault files were published.
	if err := s.syncFaults(ctx, date, result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fault sync: %v", err))
		s.recordLegError(ctx, err, logging.Fields{"stage": "fault_merge"})
	}

	result.Duration = s.now().Sub(start)
	s.metrics.SyncDuration.Observe(result.Duration.Seconds())
	s.metrics.SyncRunsTotal.WithLabelValues(result.outcome()).Inc()

	s.logger.Info(ctx, "[SYNC_COMPLETE] Sync run finished", logging.Fields{
		"date":             date.Format("2006-01-02"),
		"outcome":          result.outcome(),
		"stations":         result.totalStations(),
		"fault_records":    result.FaultRecords,
		"faults_merged":    result.FaultsMerged,
		"error_count":      len(result.Errors),
		"duration_seconds": result.Duration.Seconds(),
	})

	return result
}

// syncStationType runs one type's Locate -> Fetch -> Parse -> Normalize ->
// Upsert leg and returns the number of records written.
func (s *SyncService) syncStationType(ctx context.Context, st models.StationType, date time.Time) (int, error) {
	url, err := s.locator.LocateStationCSV(ctx, st, date)
	if err != nil {
		return 0, err
	}

	rows, err := s.fetcher.FetchCSV(ctx, url)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	records := make([]*models.StationRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.StationRecordFromRow(row, st, date, now)
		if rec.StationID == "" {
			continue
		}
		records = append(records, rec)
	}

	if err := s.repo.UpsertStationsBatch(ctx, records); err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "[SYNC_TYPE_COMPLETE] Station type ingested", logging.Fields{
		"station_type": st,
		"url":          url,
		"records":      len(records),
	})

	return len(records), nil
}

// syncFaults ingests the date's fault-detail CSV set and merges it onto
// non-working stations. When no folder or files exist for the date, the
// standing fault store is re-applied instead, so a re-ingest never leaves
// non-working stations without their previously merged detail.
func (s *SyncService) syncFaults(ctx context.Context, date time.Time, result *SyncResult) error {
	folderURL, err := s.locator.LocateFaultFolder(ctx, date)
	if err != nil {
		var notFound *locator.NotFoundError
		if errors.As(err, &notFound) {
			s.metrics.RecordSyncError("not_found")
			s.logger.Warn(ctx, "[SYNC_FAULTS_SKIPPED] No fault folder for date", logging.Fields{
				"date": date.Format("2006-01-02"),
			})
			return s.reapply(ctx, date, result)
		}
		return err
	}

	files, err := s.locator.ListFaultFiles(ctx, folderURL)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		s.logger.Warn(ctx, "[SYNC_FAULTS_EMPTY] Fault folder has no CSV files", logging.Fields{
			"folder": folderURL,
		})
		return s.reapply(ctx, date, result)
	}

	now := s.now().UTC()
	var faults []*models.FaultRecord
	for _, fileURL := range files {
		rows, err := s.fetcher.FetchCSV(ctx, fileURL)
		if err != nil {
			// Per-file isolation: one bad file must not block the rest.
			result.Errors = append(result.Errors, fmt.Sprintf("fault file %s: %v", fileURL, err))
			s.recordLegError(ctx, err, logging.Fields{"file": fileURL})
			continue
		}

		for _, row := range rows {
			fault := models.FaultRecordFromRow(row, date, path.Base(fileURL), now)
			if fault.StationID == "" {
				continue
			}
			if err := s.repo.UpsertFault(ctx, fault); err != nil {
				return err
			}
			faults = append(faults, fault)
		}
	}

	result.FaultRecords = len(faults)
	s.metrics.FaultRecordsTotal.Add(float64(len(faults)))

	// Every listed file may have failed to fetch or carried no usable
	// rows. The station upsert already cleared fault_data, so enrichment
	// must come from the standing fault store instead.
	if len(faults) == 0 {
		s.logger.Warn(ctx, "[SYNC_FAULTS_NO_ROWS] Fault files yielded no usable rows", logging.Fields{
			"folder": folderURL,
			"files":  len(files),
		})
		return s.reapply(ctx, date, result)
	}

	merged, err := s.repo.MergeFaults(ctx, faults, date)
	if err != nil {
		return err
	}
	result.FaultsMerged = merged

	s.logger.Info(ctx, "[SYNC_FAULTS_COMPLETE] Fault records merged", logging.Fields{
		"files":         len(files),
		"fault_records": len(faults),
		"merged":        merged,
	})

	return nil
}

func (s *SyncService) reapply(ctx context.Context, date time.Time, result *SyncResult) error {
	merged, err := s.repo.ReapplyFaults(ctx, date)
	if err != nil {
		return err
	}
	result.FaultsMerged = merged

	if merged > 0 {
		s.logger.Info(ctx, "[SYNC_FAULTS_REAPPLIED] Standing fault store re-applied", logging.Fields{
			"date":   date.Format("2006-01-02"),
			"merged": merged,
		})
	}

	return nil
}

func (s *SyncService) recordLegError(ctx context.Context, err error, fields logging.Fields) {
	var parseErr *locator.ParseError
	var transportErr *locator.TransportError
	switch {
	case errors.As(err, &parseErr):
		s.metrics.RecordSyncError("parse_error")
	case errors.As(err, &transportErr):
		s.metrics.RecordSyncError("transport_error")
	default:
		s.metrics.RecordSyncError("store_error")
	}
	s.logger.Error(ctx, "[SYNC_LEG_ERROR] Pipeline leg failed", fields, err)
}

func (r *SyncResult) outcome() string {
	switch {
	case len(r.Errors) == 0:
		return "success"
	case r.totalStations() > 0 || r.FaultRecords > 0:
		return "partial"
	default:
		return "failed"
	}
}

func (r *SyncResult) totalStations() int {
	total := 0
	for _, n := range r.StationsUpserted {
		total += n
	}
	return total
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
