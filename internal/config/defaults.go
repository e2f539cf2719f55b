package config

// Default file names written next to a run.
const (
	DefaultLogFileName       = "reffix.log"
	DefaultChangeLogFileName = "ChangeLog.txt"
)

// ApplyDefaults fills optional fields so callers can range over them safely.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.Include == nil {
		c.Include = []string{}
	}
	if c.Exclude == nil {
		c.Exclude = []string{}
	}
	if c.References == nil {
		c.References = []ReferenceConfig{}
	}
}
