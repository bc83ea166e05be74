package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"ecocal/internal/table"
)

// Show fetches the calendar for the requested horizon and prints it.
func (a *App) Show(ctx context.Context, opts FetchOptions) error {
	session, err := a.newSession(ctx, opts.From, opts.To, "")
	if err != nil {
		return err
	}

	tbl, err := session.GetCalendar(ctx, opts.WithDetails)
	if err != nil {
		return err
	}

	if tbl.Len() == 0 {
		fmt.Fprintf(a.Out, "no events found for %s\n", session.Horizon())
		return nil
	}

	if err := printTable(a.Out, tbl, opts.Limit); err != nil {
		return err
	}

	if opts.WithDetails {
		if skipped := session.Skipped(); len(skipped) > 0 {
			fmt.Fprintf(a.Out, "details missing for %d event(s): %s\n", len(skipped), strings.Join(skipped, ","))
		}
		if dropped := session.Dropped(); len(dropped) > 0 {
			fmt.Fprintf(a.Out, "details not requested for %d trailing event(s)\n", len(dropped))
		}
	}
	return nil
}

// printTable writes t as aligned columns with the row index first. A
// positive limit caps the printed rows.
func printTable(w io.Writer, t *table.Table, limit int) error {
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\t"+strings.Join(t.Columns, "\t"))

	rows := t.Len()
	if limit > 0 && limit < rows {
		rows = limit
	}
	cells := make([]string, len(t.Columns))
	for i := 0; i < rows; i++ {
		for j, col := range t.Columns {
			cells[j] = sanitizeInline(t.Value(i, col).String())
		}
		fmt.Fprintf(writer, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}
	if rows < t.Len() {
		fmt.Fprintf(writer, "...\t(%d more)\n", t.Len()-rows)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
