package models

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TestNormalizeStatus covers the documented synonym vocabulary plus the
// permissive default for empty input.
func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"", DefaultStatus},
		{"   ", DefaultStatus},
		{"Working", StatusWorking},
		{"WORKING", StatusWorking},
		{"NOT WORKING", StatusNonWorking},
		{"non working", StatusNonWorking},
		{"Non-Working", StatusNonWorking},
		{"Faulty", StatusNonWorking},
		{"faulty ", StatusNonWorking},
		{"  NOT WORKING  ", StatusNonWorking},
		{"OK", StatusWorking},
		{"fault", StatusWorking},
		{"NON-WORKING", StatusNonWorking},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeStatus(tt.raw); got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

// TestNormalizeStatus_Idempotent verifies canonical values pass through unchanged.
func TestNormalizeStatus_Idempotent(t *testing.T) {
	for _, s := range []Status{StatusWorking, StatusNonWorking} {
		if got := NormalizeStatus(string(s)); got != s {
			t.Errorf("NormalizeStatus(%q) = %v, want unchanged", s, got)
		}
	}
}

func TestSafeFloat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"valid", "25.73", floatPtr(25.73)},
		{"negative", "-85.1", floatPtr(-85.1)},
		{"integer", "12", floatPtr(12)},
		{"padded", " 25.73 ", floatPtr(25.73)},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"garbage", "N/A", nil},
		{"trailing junk", "25.73E", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeFloat(tt.raw)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("SafeFloat(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("SafeFloat(%q) = %v, want %v", tt.raw, *got, *tt.want)
			}
		})
	}
}

func TestParseStationType(t *testing.T) {
	for _, raw := range []string{"AWS", "aws", " Arg "} {
		if _, err := ParseStationType(raw); err != nil {
			t.Errorf("ParseStationType(%q) unexpected error: %v", raw, err)
		}
	}
	if _, err := ParseStationType("AWOS"); err == nil {
		t.Error("ParseStationType(\"AWOS\") should fail")
	}
}

func TestStationRecordFromRow(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)

	row := map[string]string{
		"STATION_NUMBER": "AWS0042",
		"DISTRICT_NAME":  "Patna",
		"BLOCK_NAME":     "Phulwari",
		"PANCHAYAT_NAME": "",
		"LATITUDE":       "25.5941",
		"LONGITUDE":      "bad",
		"VENDOR_NAME":    "Azista",
		"STATUS":         "Not Working",
		"RECORDED_TIME":  "02-01-2024",
	}

	rec := StationRecordFromRow(row, StationTypeAWS, date, now)

	if rec.StationID != "AWS0042" {
		t.Errorf("StationID = %q", rec.StationID)
	}
	if rec.StationType != StationTypeAWS {
		t.Errorf("StationType = %q", rec.StationType)
	}
	if !rec.ObservationDate.Equal(date) {
		t.Errorf("ObservationDate = %v", rec.ObservationDate)
	}
	if rec.District == nil || *rec.District != "Patna" {
		t.Errorf("District = %v", rec.District)
	}
	if rec.Panchayat != nil {
		t.Errorf("Panchayat should be nil for empty value, got %v", *rec.Panchayat)
	}
	if rec.Latitude == nil || *rec.Latitude != 25.5941 {
		t.Errorf("Latitude = %v", rec.Latitude)
	}
	if rec.Longitude != nil {
		t.Errorf("Longitude should be nil for unparsable value, got %v", *rec.Longitude)
	}
	if rec.Status != StatusNonWorking {
		t.Errorf("Status = %q, want NON-WORKING", rec.Status)
	}
	if rec.RecordedTime != "02-01-2024" {
		t.Errorf("RecordedTime = %q", rec.RecordedTime)
	}
}

// TestStationRecordFromRow_MissingColumns verifies the schema is permissive
// on read: absent columns become empty fields, never an error.
func TestStationRecordFromRow_MissingColumns(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rec := StationRecordFromRow(map[string]string{"STATION_NUMBER": "ARG0007"}, StationTypeARG, date, date)

	if rec.StationID != "ARG0007" {
		t.Errorf("StationID = %q", rec.StationID)
	}
	if rec.District != nil || rec.Vendor != nil || rec.Latitude != nil {
		t.Error("absent columns should yield nil fields")
	}
	if rec.Status != DefaultStatus {
		t.Errorf("Status = %q, want default %q", rec.Status, DefaultStatus)
	}
}

func TestFaultRecordFromRow(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	row := map[string]string{
		"STATION_ID": "AWS0042",
		"TEMP.RH":    "NO DATA",
		"RF":         "OK",
		"WS":         "",
		"AP":         "OK",
		"SM":         "FAULT",
		"SR":         "OK",
		"DATA_PKT":   "17",
		"Agency":     "Azista",
	}

	f := FaultRecordFromRow(row, date, "FS_AWS_02012024.csv", date)

	if f.StationID != "AWS0042" {
		t.Errorf("StationID = %q", f.StationID)
	}
	if f.TempRH != "NO DATA" || f.SM != "FAULT" || f.DataPkt != "17" {
		t.Errorf("channel fields not carried through: %+v", f)
	}
	if f.WS != "" {
		t.Errorf("WS = %q, want empty", f.WS)
	}
	if f.SourceFile != "FS_AWS_02012024.csv" {
		t.Errorf("SourceFile = %q", f.SourceFile)
	}
	if f.Agency != "Azista" {
		t.Errorf("Agency = %q", f.Agency)
	}
}

func TestStationRecord_Fault(t *testing.T) {
	rec := &StationRecord{}
	if _, ok := rec.Fault(); ok {
		t.Error("Fault() should report absent for empty fault_data")
	}

	rec.FaultData = types.NullJSONText{
		JSONText: []byte(`{"station_id":"AWS0042","temp_rh":"NO DATA","agency":"Azista"}`),
		Valid:    true,
	}
	f, ok := rec.Fault()
	if !ok {
		t.Fatal("Fault() should decode valid payload")
	}
	if f.StationID != "AWS0042" || f.TempRH != "NO DATA" {
		t.Errorf("decoded fault = %+v", f)
	}
}

func floatPtr(v float64) *float64 { return &v }
