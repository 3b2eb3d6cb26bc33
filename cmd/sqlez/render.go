package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nerrad567/sqlez/internal/infrastructure/database"
)

// queryResult holds every row of one statement pass.
type queryResult struct {
	columns []string
	rows    [][]database.Value
}

// collectRows steps stmt to completion.
func collectRows(stmt *database.Statement) (queryResult, error) {
	var result queryResult

	for {
		ok, err := stmt.Step()
		if err != nil {
			return result, err
		}
		if result.columns == nil {
			for i := 0; i < stmt.ColumnCount(); i++ {
				name, err := stmt.ColumnName(i)
				if err != nil {
					return result, err
				}
				result.columns = append(result.columns, name)
			}
		}
		if !ok {
			return result, nil
		}

		row := make([]database.Value, len(result.columns))
		for i := range row {
			if row[i], err = stmt.ColumnValue(i); err != nil {
				return result, err
			}
		}
		result.rows = append(result.rows, row)
	}
}

func renderResult(w io.Writer, result queryResult, format string) error {
	switch format {
	case "json":
		return renderJSON(w, result)
	case "table", "csv", "md", "markdown":
		renderTable(w, result, format)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderTable(w io.Writer, result queryResult, format string) {
	if len(result.rows) == 0 && format == "table" {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.columns))
	for i, col := range result.columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, values := range result.rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = v.String()
		}
		t.AppendRow(row)
	}

	switch format {
	case "csv":
		t.RenderCSV()
	case "md", "markdown":
		t.RenderMarkdown()
	default:
		t.Render()
	}
}

func renderJSON(w io.Writer, result queryResult) error {
	out := make([]map[string]any, 0, len(result.rows))
	for _, values := range result.rows {
		obj := make(map[string]any, len(values))
		for i, v := range values {
			obj[result.columns[i]] = jsonValue(v)
		}
		out = append(out, obj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// jsonValue maps a column value to its natural JSON form. Blobs are
// base64-encoded by encoding/json.
func jsonValue(v database.Value) any {
	switch v.Kind() {
	case database.KindInteger:
		i, _ := v.Int64()
		return i
	case database.KindFloat:
		f, _ := v.Float64()
		return f
	case database.KindText:
		s, _ := v.Text()
		return s
	case database.KindBlob:
		b, _ := v.Blob()
		return b
	default:
		return nil
	}
}
