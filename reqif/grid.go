package reqif

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Top-row values that group columns without naming them. Columns under these
// take their leaf header alone.
var groupingLabels = map[string]bool{
	"Input":  true,
	"Output": true,
	"No.":    true,
}

// buildTable reconstructs a rectangular grid from a table node and merges
// the first two rows into flat column names. Tables with fewer than two rows
// carry no data under a header and yield (nil, nil). A malformed span
// attribute rejects the table: guessing a width would silently misalign
// every column to its right.
func buildTable(tbl *html.Node) (*Table, error) {
	rows := tableRows(tbl)
	if len(rows) < 2 {
		return nil, nil
	}

	grid := make([][]string, len(rows))
	for r, tr := range rows {
		for _, cell := range rowCells(tr) {
			// Cells append after whatever this row already holds, whether
			// placed by earlier cells of the row or by spans from above.
			c := len(grid[r])

			text := collectText(cell)
			colspan, err := spanAttr(cell, "colspan")
			if err != nil {
				return nil, err
			}
			rowspan, err := spanAttr(cell, "rowspan")
			if err != nil {
				return nil, err
			}

			for i := r; i < r+rowspan && i < len(grid); i++ {
				for len(grid[i]) < c+colspan {
					grid[i] = append(grid[i], "")
				}
				for j := c; j < c+colspan; j++ {
					grid[i][j] = text
				}
			}
		}
	}

	// Vertical fill, top-down so values cascade: a cell left empty by a span
	// that grew its row past the span's start column inherits the value
	// directly above it.
	for r := 1; r < len(grid); r++ {
		for c := range grid[r] {
			if grid[r][c] == "" && c < len(grid[r-1]) {
				grid[r][c] = grid[r-1][c]
			}
		}
	}

	// Pad to a rectangle so every data row lines up with the merged headers.
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	for r := range grid {
		for len(grid[r]) < width {
			grid[r] = append(grid[r], "")
		}
	}

	return &Table{
		Headers: mergeHeaders(grid[0], grid[1]),
		Rows:    grid[2:],
	}, nil
}

// mergeHeaders flattens a two-row header. Runs of consecutive identical
// values in the top row form a group. An empty or grouping-label top is
// structural only, so its columns keep the leaf name; any other top value is
// meaningful and prefixes each leaf beneath it.
func mergeHeaders(top, leaf []string) []string {
	merged := make([]string, 0, len(top))
	for c := 0; c < len(top); {
		span := 1
		for c+span < len(top) && top[c+span] == top[c] {
			span++
		}
		for i := c; i < c+span; i++ {
			if top[c] == "" || groupingLabels[top[c]] {
				merged = append(merged, leaf[i])
			} else {
				merged = append(merged, top[c]+" - "+leaf[i])
			}
		}
		c += span
	}
	return merged
}

// spanAttr reads a td/th span attribute. A missing attribute is span 1, and
// values below 1 are clamped to 1. Non-numeric values are an error.
func spanAttr(cell *html.Node, name string) (int, error) {
	for _, a := range cell.Attr {
		if a.Key != name {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil {
			return 0, fmt.Errorf("%s %q is not a number", name, a.Val)
		}
		if v < 1 {
			v = 1
		}
		return v, nil
	}
	return 1, nil
}

// tableRows returns the tr elements of tbl in document order. Rows of nested
// tables belong to those tables and are skipped.
func tableRows(tbl *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				switch c.DataAtom {
				case atom.Table:
					continue
				case atom.Tr:
					rows = append(rows, c)
					continue
				}
			}
			walk(c)
		}
	}
	walk(tbl)
	return rows
}

// rowCells returns the td and th cells of tr in document order, skipping
// cells of nested tables.
func rowCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				switch c.DataAtom {
				case atom.Table:
					continue
				case atom.Td, atom.Th:
					cells = append(cells, c)
					continue
				}
			}
			walk(c)
		}
	}
	walk(tr)
	return cells
}
