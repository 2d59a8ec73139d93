package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"station-platform/pkg/logging"
)

// Row is one CSV record keyed by header column name. Columns absent from a
// file simply do not appear in the map; reads of missing keys yield "".
type Row map[string]string

// Fetcher downloads CSV resources and parses them into header-keyed rows.
type Fetcher struct {
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewFetcher creates a CSV fetcher with a bounded request timeout.
func NewFetcher(timeout time.Duration, logger *logging.StructuredLogger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchCSV downloads a resource and parses it as header-delimited CSV.
// Transport failures and non-2xx responses propagate to the caller; there
// is no retry here. Rows shorter than the header are padded with empty
// values rather than rejected.
func (f *Fetcher) FetchCSV(ctx context.Context, url string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", url, err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	f.logger.Debug(ctx, "[INGEST_CSV] CSV parsed", logging.Fields{
		"url":       url,
		"row_count": len(rows),
	})

	return rows, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
