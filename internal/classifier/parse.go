package classifier

import (
	"encoding/json"
	"math"
	"ppe-monitor/internal/models"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// UnidentifiedWorker names a violation whose description came back blank.
const UnidentifiedWorker = "Unidentified worker"

type OutcomeKind int

const (
	OutcomeCompliant OutcomeKind = iota + 1
	OutcomeViolations
	OutcomeNoWorkers
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompliant:
		return models.ComplianceCompliant
	case OutcomeViolations:
		return models.ComplianceViolationsDetected
	case OutcomeNoWorkers:
		return models.ComplianceNoWorkers
	}
	return "unknown"
}

var outcomeKinds = map[string]OutcomeKind{
	models.ComplianceCompliant:          OutcomeCompliant,
	models.ComplianceViolationsDetected: OutcomeViolations,
	models.ComplianceNoWorkers:          OutcomeNoWorkers,
}

// Outcome is a validated classifier verdict. Violations is only populated for OutcomeViolations.
type Outcome struct {
	Kind            OutcomeKind
	WorkersDetected int
	Violations      []models.ViolationEntry
}

// Result converts the outcome back into the transient analysis result.
func (o Outcome) Result() *models.AnalysisResult {
	return &models.AnalysisResult{
		WorkersDetected:   o.WorkersDetected,
		Violations:        o.Violations,
		OverallCompliance: o.Kind.String(),
	}
}

// ExtractJSONObject returns the first complete JSON object embedded in text,
// skipping any prose or code fences around it.
func ExtractJSONObject(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
	}
	return nil, false
}

type rawViolation struct {
	WorkerDescription *string   `json:"worker_description"`
	MissingPPE        *[]string `json:"missing_ppe"`
}

type rawResult struct {
	WorkersDetected   *float64       `json:"workers_detected"`
	Violations        []rawViolation `json:"violations"`
	OverallCompliance *string        `json:"overall_compliance"`
}

// Interpret locates the verdict in the reply text and validates it.
// Every failure is an ErrResponseInvalid.
func Interpret(text string) (Outcome, error) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return Outcome{}, invalid("no JSON object in reply")
	}

	var r rawResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return Outcome{}, newError(ErrResponseInvalid, 0, "malformed verdict", err)
	}

	if r.WorkersDetected == nil {
		return Outcome{}, invalid("workers_detected missing")
	}
	workers := *r.WorkersDetected
	if workers < 0 || workers != math.Trunc(workers) {
		return Outcome{}, invalid("workers_detected must be a non-negative integer, got %v", workers)
	}
	if r.OverallCompliance == nil {
		return Outcome{}, invalid("overall_compliance missing")
	}

	compliance := strings.TrimSpace(*r.OverallCompliance)
	if !models.ValidCompliance(compliance) {
		return Outcome{}, invalid("unknown overall_compliance %q", *r.OverallCompliance)
	}
	outcome := Outcome{Kind: outcomeKinds[compliance], WorkersDetected: int(workers)}

	if outcome.Kind != OutcomeViolations {
		return outcome, nil
	}

	entries := make([]models.ViolationEntry, 0, len(r.Violations))
	for i, v := range r.Violations {
		if v.MissingPPE == nil {
			return Outcome{}, invalid("violation %d: missing_ppe missing", i)
		}
		name := ""
		if v.WorkerDescription != nil {
			name = norm.NFC.String(strings.TrimSpace(*v.WorkerDescription))
		}
		if name == "" {
			name = UnidentifiedWorker
		}
		items := make([]string, 0, len(*v.MissingPPE))
		for _, item := range *v.MissingPPE {
			if item = norm.NFC.String(strings.TrimSpace(item)); item != "" {
				items = append(items, item)
			}
		}
		entries = append(entries, models.ViolationEntry{
			WorkerDescription: name,
			MissingPPE:        items,
		})
	}
	outcome.Violations = entries
	return outcome, nil
}

// ParseResponse interprets reply text into an analysis result.
func ParseResponse(text string) (*models.AnalysisResult, error) {
	outcome, err := Interpret(text)
	if err != nil {
		return nil, err
	}
	return outcome.Result(), nil
}
