package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table is a named grid of already-formatted cells. Every recipe renders
// into one or more tables for the text report and the spreadsheet.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Append adds a row, formatting each value with %v.
func (t *Table) Append(values ...any) {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	t.Rows = append(t.Rows, row)
}

// WriteText renders tables one after another, each under its name, with
// aligned columns.
func WriteText(w io.Writer, tables []Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "== %s ==\n", t.Name); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if len(t.Rows) == 0 {
			fmt.Fprintln(tw, "(no rows)")
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
