package models

const (
	ComplianceCompliant          = "compliant"
	ComplianceViolationsDetected = "violations_detected"
	ComplianceNoWorkers          = "no_workers"
)

// AnalysisResult is the classifier verdict for a single frame. It is never persisted.
type AnalysisResult struct {
	WorkersDetected   int              `json:"workers_detected"`
	Violations        []ViolationEntry `json:"violations"`
	OverallCompliance string           `json:"overall_compliance"`
}

type ViolationEntry struct {
	WorkerDescription string   `json:"worker_description"`
	MissingPPE        []string `json:"missing_ppe"`
}

// HasViolations reports whether the verdict calls for violation records.
func (r *AnalysisResult) HasViolations() bool {
	return r != nil && r.OverallCompliance == ComplianceViolationsDetected
}

func ValidCompliance(v string) bool {
	switch v {
	case ComplianceCompliant, ComplianceViolationsDetected, ComplianceNoWorkers:
		return true
	}
	return false
}
