package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
)

func validateOutputMode(mode string) error {
	switch mode {
	case outputAuto, outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want auto, table or json)", mode)
	}
}

// wantsJSON resolves auto to JSON whenever stdout is not a terminal.
func wantsJSON(cmd *cobra.Command, mode string) bool {
	switch mode {
	case outputJSON:
		return true
	case outputTable:
		return false
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// printTable writes a rendered table, or a placeholder line when rows is empty.
func printTable(cmd *cobra.Command, empty string, headers []string, rows [][]string, aligns []columnAlignment) {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}

func formatYear(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
