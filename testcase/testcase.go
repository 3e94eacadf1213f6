// Package testcase turns model output into importable test-case records.
//
// The generation model answers with a JSON envelope of loosely-shaped test
// cases; ExtractJSON recovers that envelope from whatever prose surrounds
// it, and a Builder fills each case into the fixed column set the test
// management import expects.
package testcase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
)

// Defaults are the fixed column values stamped onto every generated case.
// The zero value is not useful; call defaults() or start from Standard().
type Defaults struct {
	VoltagePrecondition string `json:"voltage_precondition" yaml:"voltage_precondition"`
	TestType            string `json:"test_type" yaml:"test_type"`
	IssueType           string `json:"issue_type" yaml:"issue_type"`
	ProjectKey          string `json:"project_key" yaml:"project_key"`
	Assignee            string `json:"assignee" yaml:"assignee"`
	PlannedExecution    string `json:"planned_execution" yaml:"planned_execution"`
	TestCaseType        string `json:"test_case_type" yaml:"test_case_type"`
	Components          string `json:"components" yaml:"components"`
	Labels              string `json:"labels" yaml:"labels"`
}

func (d *Defaults) defaults() {
	if d.VoltagePrecondition == "" {
		d.VoltagePrecondition = "1. Voltage= 12V\n2. Bat-ON"
	}
	if d.TestType == "" {
		d.TestType = "RoboFIT"
	}
	if d.IssueType == "" {
		d.IssueType = "Test"
	}
	if d.ProjectKey == "" {
		d.ProjectKey = "TCTOIC"
	}
	if d.Assignee == "" {
		d.Assignee = "ENGG"
	}
	if d.PlannedExecution == "" {
		d.PlannedExecution = "Manual"
	}
	if d.TestCaseType == "" {
		d.TestCaseType = "Feature Functional"
	}
	if d.Components == "" {
		d.Components = "FEAT"
	}
	if d.Labels == "" {
		d.Labels = "SYS_DI_VALIDATION_TEST"
	}
}

// Standard returns the defaults with every zero field filled.
func Standard() Defaults {
	var d Defaults
	d.defaults()
	return d
}

// Raw is one test case as the model produced it. Every field is optional.
type Raw struct {
	SummarySuffix  string `json:"summary_suffix"`
	Action         string `json:"action"`
	Data           string `json:"data"`
	ExpectedResult string `json:"expected_result"`
}

// Case is one fully-populated output record.
type Case struct {
	IssueID          int
	Summary          string
	TestType         string
	IssueType        string
	ProjectKey       string
	Assignee         string
	Description      string
	Action           string
	Data             string
	ExpectedResult   string
	PlannedExecution string
	TestCaseType     string
	Components       string
	Labels           string
	LinkTest         string
}

// jsonBlob matches the outermost {...} region of a response, newlines
// included. Models wrap their JSON in prose often enough that decoding the
// response directly would fail on most answers.
var jsonBlob = regexp.MustCompile(`(?s)\{.*\}`)

// envelope is the JSON shape the prompts ask for.
type envelope struct {
	TestCases []json.RawMessage `json:"test_cases"`
}

// ExtractJSON recovers the test-case list from a model response. Array
// items that are not JSON objects are skipped with a warning; a response
// with no recoverable envelope is an error.
func ExtractJSON(response string, logger *slog.Logger) ([]Raw, error) {
	if logger == nil {
		logger = slog.Default()
	}

	blob := jsonBlob.FindString(response)
	if blob == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return nil, fmt.Errorf("parse model JSON: %w", err)
	}

	cases := make([]Raw, 0, len(env.TestCases))
	for i, item := range env.TestCases {
		var raw Raw
		if err := json.Unmarshal(item, &raw); err != nil {
			logger.Warn("model returned a non-object test case, skipping",
				"index", i, "item", truncate(string(item), 120))
			continue
		}
		cases = append(cases, raw)
	}
	return cases, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Builder assembles Cases with a sequential Issue ID, starting at 1 per
// input file.
type Builder struct {
	defaults Defaults
	next     int
}

// NewBuilder returns a Builder stamping the given defaults.
func NewBuilder(d Defaults) *Builder {
	d.defaults()
	return &Builder{defaults: d, next: 1}
}

// Build fills one raw model case into a complete record linked to the
// requirement it was generated from.
func (b *Builder) Build(raw Raw, requirementID string) Case {
	c := Case{
		IssueID:          b.next,
		Summary:          fmt.Sprintf("[%s] %s", requirementID, orDefault(raw.SummarySuffix, "Generated Test")),
		TestType:         b.defaults.TestType,
		IssueType:        b.defaults.IssueType,
		ProjectKey:       b.defaults.ProjectKey,
		Assignee:         b.defaults.Assignee,
		Action:           orDefault(raw.Action, b.defaults.VoltagePrecondition),
		Data:             orDefault(raw.Data, "N/A"),
		ExpectedResult:   orDefault(raw.ExpectedResult, "N/A"),
		PlannedExecution: b.defaults.PlannedExecution,
		TestCaseType:     b.defaults.TestCaseType,
		Components:       b.defaults.Components,
		Labels:           b.defaults.Labels,
		LinkTest:         requirementID,
	}
	b.next++
	return c
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
