package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// StationType identifies one of the two monitored station networks.
type StationType string

const (
	StationTypeAWS StationType = "AWS" // automatic weather station
	StationTypeARG StationType = "ARG" // automatic rain gauge
)

// KnownStationTypes lists every type the daily sync ingests, in run order.
var KnownStationTypes = []StationType{StationTypeAWS, StationTypeARG}

// ParseStationType validates a station type coming from a query parameter.
func ParseStationType(raw string) (StationType, error) {
	st := StationType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range KnownStationTypes {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown station type %q", raw)
}

// StationRecord is one station's status snapshot for a single observation
// date. Identity is the composite (station_id, station_type, observation_date);
// re-ingesting the same key overwrites the previous row.
type StationRecord struct {
	StationID       string            `json:"station_id" db:"station_id"`
	StationType     StationType       `json:"station_type" db:"station_type"`
	ObservationDate time.Time         `json:"observation_date" db:"observation_date"`
	District        *string           `json:"district,omitempty" db:"district"`
	Block           *string           `json:"block,omitempty" db:"block"`
	Panchayat       *string           `json:"panchayat,omitempty" db:"panchayat"`
	Latitude        *float64          `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64          `json:"longitude,omitempty" db:"longitude"`
	Vendor          *string           `json:"vendor,omitempty" db:"vendor"`
	Status          Status            `json:"status" db:"status"`
	RecordedTime    string            `json:"recorded_time" db:"recorded_time"`
	FaultData       types.NullJSONText `json:"-" db:"fault_data"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// Fault decodes the embedded fault payload, if one has been merged on.
func (r *StationRecord) Fault() (*FaultRecord, bool) {
	if !r.FaultData.Valid || len(r.FaultData.JSONText) == 0 {
		return nil, false
	}
	var f FaultRecord
	if err := json.Unmarshal(r.FaultData.JSONText, &f); err != nil {
		return nil, false
	}
	return &f, true
}

// FaultRecord carries the sensor-channel diagnostics reported for a
// non-working station on a given date. Channel values are kept as the raw
// strings supplied by the source; empty means not reported.
type FaultRecord struct {
	StationID       string    `json:"station_id" db:"station_id"`
	TempRH          string    `json:"temp_rh" db:"temp_rh"`
	RF              string    `json:"rf" db:"rf"`
	WS              string    `json:"ws" db:"ws"`
	AP              string    `json:"ap" db:"ap"`
	SM              string    `json:"sm" db:"sm"`
	SR              string    `json:"sr" db:"sr"`
	DataPkt         string    `json:"data_pkt" db:"data_pkt"`
	Agency          string    `json:"agency" db:"agency"`
	SourceFile      string    `json:"source_file,omitempty" db:"source_file"`
	ObservationDate time.Time `json:"observation_date" db:"observation_date"`
	CreatedAt       time.Time `json:"-" db:"created_at"`
}

// Station CSV column names. The header row is the contract; columns may be
// missing entirely, in which case the field stays empty.
const (
	colStationNumber = "STATION_NUMBER"
	colDistrictName  = "DISTRICT_NAME"
	colBlockName     = "BLOCK_NAME"
	colPanchayatName = "PANCHAYAT_NAME"
	colLatitude      = "LATITUDE"
	colLongitude     = "LONGITUDE"
	colVendorName    = "VENDOR_NAME"
	colStatus        = "STATUS"
	colRecordedTime  = "RECORDED_TIME"
)

// Fault CSV column names.
const (
	colFaultStationID = "STATION_ID"
	colTempRH         = "TEMP.RH"
	colRF             = "RF"
	colWS             = "WS"
	colAP             = "AP"
	colSM             = "SM"
	colSR             = "SR"
	colDataPkt        = "DATA_PKT"
	colAgency         = "Agency"
)

// StationRecordFromRow builds a StationRecord from one parsed CSV row.
// Numeric coordinates are coerced defensively: an unparsable latitude or
// longitude becomes absent rather than failing the row.
func StationRecordFromRow(row map[string]string, st StationType, date time.Time, now time.Time) *StationRecord {
	return &StationRecord{
		StationID:       strings.TrimSpace(row[colStationNumber]),
		StationType:     st,
		ObservationDate: date,
		District:        optionalString(row[colDistrictName]),
		Block:           optionalString(row[colBlockName]),
		Panchayat:       optionalString(row[colPanchayatName]),
		Latitude:        SafeFloat(row[colLatitude]),
		Longitude:       SafeFloat(row[colLongitude]),
		Vendor:          optionalString(row[colVendorName]),
		Status:          NormalizeStatus(row[colStatus]),
		RecordedTime:    strings.TrimSpace(row[colRecordedTime]),
		CreatedAt:       now,
	}
}

// FaultRecordFromRow builds a FaultRecord from one parsed fault CSV row.
func FaultRecordFromRow(row map[string]string, date time.Time, sourceFile string, now time.Time) *FaultRecord {
	return &FaultRecord{
		StationID:       strings.TrimSpace(row[colFaultStationID]),
		TempRH:          strings.TrimSpace(row[colTempRH]),
		RF:              strings.TrimSpace(row[colRF]),
		WS:              strings.TrimSpace(row[colWS]),
		AP:              strings.TrimSpace(row[colAP]),
		SM:              strings.TrimSpace(row[colSM]),
		SR:              strings.TrimSpace(row[colSR]),
		DataPkt:         strings.TrimSpace(row[colDataPkt]),
		Agency:          strings.TrimSpace(row[colAgency]),
		SourceFile:      sourceFile,
		ObservationDate: date,
		CreatedAt:       now,
	}
}

// SafeFloat parses a numeric field, returning nil for anything unparsable.
func SafeFloat(raw string) *float64 {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optionalString(raw string) *string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
