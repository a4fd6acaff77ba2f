package dto

// RefreshOptions selects profiles for a seniority refresh.
type RefreshOptions struct {
	StaffID    string `json:"staff_id,omitempty"`
	ActiveOnly bool   `json:"active_only"`
	DryRun     bool   `json:"dry_run"`
}

// SeniorityChange is one profile whose description differs from the stored value.
type SeniorityChange struct {
	StaffID  string `json:"staff_id"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// RefreshReport summarises a seniority refresh.
type RefreshReport struct {
	Processed int               `json:"processed"`
	Updated   int               `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Errors    []string          `json:"errors"`
	Changes   []SeniorityChange `json:"changes"`
	DryRun    bool              `json:"dry_run"`
}
