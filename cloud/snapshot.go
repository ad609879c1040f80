package cloud

import (
	"time"

	"github.com/mtsgi/tasket/store"
)

// Snapshot is the portable backup payload. Items is the only mandatory
// collection; the rest are optional and absent collections are skipped on
// restore. Field names are the wire format and must stay stable so older
// backups remain readable.
type Snapshot struct {
	Version     int                 `json:"version"`
	ExportedAt  time.Time           `json:"exportedAt"`
	Items       []store.Item        `json:"items"`
	Routines    []store.Routine     `json:"routines,omitempty"`
	RoutineLogs []store.RoutineLog  `json:"routineLogs,omitempty"`
	DayTitles   []store.DayTitle    `json:"dayTitles,omitempty"`
	AppSettings []store.AppSettings `json:"appSettings,omitempty"`
	HealthData  []store.HealthData  `json:"healthData,omitempty"`
}
