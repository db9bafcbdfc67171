package models

// Settings represents install-wide settings
type Settings struct {
	UserID   string `json:"user_id"`  // the acting user for this install
	Timezone string `json:"timezone"` // IANA timezone name (e.g. "America/New_York", or "Local" for system timezone)
}
