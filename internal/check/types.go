package check

// #region check-config
// Config holds thresholds for post-evaluation validation.
type Config struct {
	MaxEvidenceItems int // warn when a core carries more evidence than this
}

// DefaultConfig returns the validation defaults.
func DefaultConfig() Config {
	return Config{
		MaxEvidenceItems: 5,
	}
}

// #endregion check-config

// #region check-metric
// Metric captures a single validation check result. Value counts the
// violations observed for that check.
type Metric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion check-metric

// #region check-result
// Result is the output of validating one processed entry.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}

// #endregion check-result
