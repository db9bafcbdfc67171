package constants

import "time"

// Frequency is the recurrence rule attached to a mechanism
type Frequency string

// GoalStatus represents where a goal sits in the completion gate
type GoalStatus string

// Role is the role a user holds inside a program
type Role string

const (
	AppName            = "cadence"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/cadence/cadence.db"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Supported civil-date window. Dates outside it are rejected as validation errors.
	MinSupportedDate = "2000-01-01"
	MaxSupportedDate = "2099-12-31"

	// Frequencies
	FrequencyDaily    Frequency = "daily"
	Frequency2xWeek   Frequency = "2x_week"
	Frequency3xWeek   Frequency = "3x_week"
	Frequency4xWeek   Frequency = "4x_week"
	Frequency5xWeek   Frequency = "5x_week"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"

	// WeeklyWeekday is the canonical weekday for the "weekly" frequency.
	WeeklyWeekday = time.Monday

	// BiweeklyIntervalDays is the spacing between biweekly occurrences.
	BiweeklyIntervalDays = 14

	// Goals hold between MinMechanismsPerGoal and MaxMechanismsPerGoal mechanisms.
	MinMechanismsPerGoal = 4
	MaxMechanismsPerGoal = 6

	// Goal states
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"

	// Roles
	RoleParticipant Role = "participant"
	RoleSupervisor  Role = "supervisor"

	// StoreTimeout bounds every mutating store call made by the controller.
	StoreTimeout = 10 * time.Second

	// PredictionLookbackDays limits the completion history used for velocity.
	PredictionLookbackDays = 28

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "cadence-"
	BackupFileSuffix = ".db"

	// Settings keys
	SettingUserID   = "user_id"
	SettingTimezone = "timezone"

	DefaultTimezone = "Local" // Use system local timezone by default
)

// Frequencies lists every recognized frequency in display order.
var Frequencies = []Frequency{
	FrequencyDaily,
	Frequency2xWeek,
	Frequency3xWeek,
	Frequency4xWeek,
	Frequency5xWeek,
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
	FrequencyYearly,
}

// IsValidFrequency reports whether f is one of the closed set of frequencies.
func IsValidFrequency(f Frequency) bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}
