package models

// Status is the verdict of evaluating one control.
type Status string

const (
	StatusPass   Status = "PASS"
	StatusFail   Status = "FAIL"
	StatusWarn   Status = "WARN"
	StatusInfo   Status = "INFO"
	StatusSkip   Status = "SKIP"
	StatusManual Status = "MANUAL"
)

// Priority orders statuses for report display, most urgent first. Lower is
// more urgent.
func (s Status) Priority() int {
	switch s {
	case StatusFail:
		return 1
	case StatusWarn:
		return 2
	case StatusManual:
		return 3
	case StatusSkip:
		return 4
	case StatusInfo:
		return 5
	case StatusPass:
		return 6
	default:
		return 7
	}
}

// Severity grades the impact of a failed control.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// SeverityRank orders severities for enforcement comparisons; higher is more
// severe. Unknown severities rank below LOW.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Result is the outcome of evaluating one control against the target cluster.
type Result struct {
	ControlID    string   `json:"control_id"`
	Title        string   `json:"title"`
	Section      string   `json:"section"`
	ProfileLevel string   `json:"profile_level,omitempty"`
	Status       Status   `json:"status"`
	Message      string   `json:"message"`
	Expected     string   `json:"expected,omitempty"`
	Actual       string   `json:"actual,omitempty"`
	Severity     Severity `json:"severity,omitempty"`
	Remediation  string   `json:"remediation,omitempty"`
	AuditCommand string   `json:"audit_command,omitempty"`
	Impact       string   `json:"impact,omitempty"`
}
