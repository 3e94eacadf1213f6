package testcase

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Columns is the output header row, in import order.
var Columns = []string{
	"Issue ID", "Summary", "Test Type", "Issue Type", "Project Key",
	"Assignee", "Description", "Action", "Data", "Expected Result",
	"Planned Execution", "Test Case Type", "Components", "Labels", "LinkTest",
}

// WriteCSV writes the header row and one record per case. Output is UTF-8
// with a leading BOM so spreadsheet imports detect the encoding.
func WriteCSV(w io.Writer, cases []Case) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())

	cw := csv.NewWriter(bw)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range cases {
		record := []string{
			strconv.Itoa(c.IssueID),
			c.Summary,
			c.TestType,
			c.IssueType,
			c.ProjectKey,
			c.Assignee,
			c.Description,
			c.Action,
			c.Data,
			c.ExpectedResult,
			c.PlannedExecution,
			c.TestCaseType,
			c.Components,
			c.Labels,
			c.LinkTest,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write case %d: %w", c.IssueID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Close()
}
