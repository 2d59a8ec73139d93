package models

import "strings"

// Status is the canonical two-valued station status.
type Status string

const (
	StatusWorking    Status = "WORKING"
	StatusNonWorking Status = "NON-WORKING"
)

// DefaultStatus is applied when the source CSV carries no status at all.
// The upstream feed omits the column for healthy stations, so absence is
// treated optimistically. Tests assert on this constant deliberately.
const DefaultStatus = StatusWorking

// nonWorkingSynonyms is the fixed vocabulary the upstream feeds use for a
// faulted station, compared after trimming and upper-casing.
var nonWorkingSynonyms = map[string]struct{}{
	"NOT WORKING": {},
	"NON WORKING": {},
	"NON-WORKING": {},
	"FAULTY":      {},
}

// NormalizeStatus maps a raw free-text status string onto the canonical
// two-valued status. It is pure and idempotent: normalizing an already
// canonical value returns it unchanged.
func NormalizeStatus(raw string) Status {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	if cleaned == "" {
		return DefaultStatus
	}
	if _, ok := nonWorkingSynonyms[cleaned]; ok {
		return StatusNonWorking
	}
	return StatusWorking
}
