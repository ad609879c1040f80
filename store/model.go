package store

import "time"

// ItemType distinguishes the three kinds of calendar entries: todos,
// expenses and incomes.
type ItemType string

const (
	ItemTypeTodo    ItemType = "todo"
	ItemTypeExpense ItemType = "expense"
	ItemTypeIncome  ItemType = "income"
)

// Item is a single calendar entry (task or money movement). JSON field names
// are the snapshot wire format and must stay stable across backups.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Amount      float64    `json:"amount"`
	Type        ItemType   `json:"type"`
	IsCompleted bool       `json:"is_completed"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ExecutedAt  *time.Time `json:"executed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Notes       string     `json:"notes"`
	MealLog     *MealLog   `json:"mealLog,omitempty"`
}

// MealLog holds optional nutrition details attached to a todo item.
type MealLog struct {
	Calories float64 `json:"calories,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
	Fat      float64 `json:"fat,omitempty"`
	Photo    string  `json:"photo,omitempty"`
	Memo     string  `json:"memo,omitempty"`
}

// Routine is a monthly recurring habit definition.
type Routine struct {
	ID        string    `json:"id"`
	YearMonth string    `json:"yearMonth"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// RoutineStatus is the per-day completion state of a routine.
type RoutineStatus string

const (
	RoutineUnconfirmed RoutineStatus = "unconfirmed"
	RoutineNotAchieved RoutineStatus = "not_achieved"
	RoutineAchieved    RoutineStatus = "achieved"
)

// RoutineLog records the state of one routine on one day. The pair
// (RoutineID, Date) is unique; saving again for the same pair overwrites.
type RoutineLog struct {
	ID          string        `json:"id"`
	RoutineID   string        `json:"routineId"`
	Date        string        `json:"date"` // YYYY-MM-DD
	Status      RoutineStatus `json:"status"`
	CompletedAt *time.Time    `json:"completed_at"`
}

// DayTitle is the headline a user gives to a single day. One row per date.
type DayTitle struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// CalendarDisplay controls which aggregates the calendar view renders.
type CalendarDisplay struct {
	ShowExpense   bool `json:"showExpense"`
	ShowIncome    bool `json:"showIncome"`
	ShowMainTask  bool `json:"showMainTask"`
	ShowTaskCount bool `json:"showTaskCount"`
}

// AppSettings is the application settings record. A single row with the
// fixed id "app-settings" exists in practice, but the store does not
// enforce that.
type AppSettings struct {
	ID               string          `json:"id"`
	HasSeenTutorial  bool            `json:"hasSeenTutorial"`
	LockEnabled      bool            `json:"lockEnabled"`
	PinHash          *string         `json:"pinHash"`
	BiometricEnabled bool            `json:"biometricEnabled"`
	MaxAttempts      int             `json:"maxAttempts"`
	LockTimeout      int             `json:"lockTimeout"`
	DarkMode         bool            `json:"darkMode"`
	DateChangeLine   int             `json:"dateChangeLine"`
	Language         string          `json:"language"`
	CalendarDisplay  CalendarDisplay `json:"calendarDisplay"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HealthData is one day's health measurements. All measurements are
// optional; absent values are omitted from the wire format.
type HealthData struct {
	ID                     string    `json:"id"`
	Date                   string    `json:"date"` // YYYY-MM-DD
	Weight                 *float64  `json:"weight,omitempty"`
	BodyFatPercentage      *float64  `json:"bodyFatPercentage,omitempty"`
	MuscleMass             *float64  `json:"muscleMass,omitempty"`
	BasalMetabolicRate     *float64  `json:"basalMetabolicRate,omitempty"`
	SystolicBloodPressure  *float64  `json:"systolicBloodPressure,omitempty"`
	DiastolicBloodPressure *float64  `json:"diastolicBloodPressure,omitempty"`
	HeartRate              *float64  `json:"heartRate,omitempty"`
	BodyTemperature        *float64  `json:"bodyTemperature,omitempty"`
	Spo2                   *float64  `json:"spo2,omitempty"`
	SleepHours             *float64  `json:"sleepHours,omitempty"`
	Steps                  *float64  `json:"steps,omitempty"`
	ExerciseMinutes        *float64  `json:"exerciseMinutes,omitempty"`
	CaloriesBurned         *float64  `json:"caloriesBurned,omitempty"`
	WaterIntake            *float64  `json:"waterIntake,omitempty"`
	MedicationRecord       string    `json:"medicationRecord,omitempty"`
	HealthMemo             string    `json:"healthMemo,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Provider identifies a cloud storage backend type.
type Provider string

const (
	ProviderS3Compatible Provider = "s3-compatible"
	ProviderWebDAV       Provider = "webdav"
	ProviderGoogleDrive  Provider = "google-drive"
	ProviderDropbox      Provider = "dropbox"
	ProviderAzureBlob    Provider = "azure-blob"
	ProviderCustom       Provider = "custom"
)

// BackupConfig is a saved remote-target connection profile. AccessKeyID and
// SecretAccessKey are always ciphertext produced by the credential cipher;
// plaintext secrets are never persisted.
type BackupConfig struct {
	ID                 string     `json:"id"`
	Provider           Provider   `json:"provider"`
	Name               string     `json:"name"`
	Endpoint           string     `json:"endpoint,omitempty"`
	Region             string     `json:"region,omitempty"`
	Bucket             string     `json:"bucket,omitempty"`
	AccessKeyID        string     `json:"accessKeyId,omitempty"`
	SecretAccessKey    string     `json:"secretAccessKey,omitempty"`
	IsEnabled          bool       `json:"isEnabled"`
	AutoBackup         bool       `json:"autoBackup"`
	AutoBackupInterval int        `json:"autoBackupInterval,omitempty"` // hours
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	LastBackupAt       *time.Time `json:"last_backup_at,omitempty"`
}

// BackupStatus is the lifecycle state of one backup attempt.
type BackupStatus string

const (
	BackupInProgress BackupStatus = "in-progress"
	BackupSuccess    BackupStatus = "success"
	BackupFailed     BackupStatus = "failed"
)

// BackupType distinguishes user-initiated from scheduler-initiated backups.
type BackupType string

const (
	BackupManual BackupType = "manual"
	BackupAuto   BackupType = "auto"
)

// BackupHistory is the audit row for one backup attempt. A row is created
// in-progress before any network I/O and transitions exactly once to
// success or failed; it is never mutated afterwards. ConfigID is a weak
// reference: deleting a config leaves its history in place.
type BackupHistory struct {
	ID         string       `json:"id"`
	ConfigID   string       `json:"configId"`
	Status     BackupStatus `json:"status"`
	Type       BackupType   `json:"type"`
	Size       int64        `json:"size,omitempty"`
	ItemCount  int          `json:"itemCount,omitempty"`
	Error      string       `json:"error,omitempty"`
	RemotePath string       `json:"remotePath,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
