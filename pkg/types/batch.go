package types

// BatchEntry is one planned commit in a batch plan file. Date is required;
// an empty Time falls back to the configured default at execution.
type BatchEntry struct {
	Date    string   `yaml:"date" json:"date"`       // YYYY-MM-DD
	Time    string   `yaml:"time,omitempty" json:"time,omitempty"` // HH:MM
	Message string   `yaml:"message" json:"message"`
	Files   []string `yaml:"files,omitempty" json:"files,omitempty"`
}
