package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

// outputFormat resolves the effective output format. --json is shorthand
// for --format json.
func outputFormat() (string, error) {
	if flagJSON {
		return formatJSON, nil
	}
	switch flagFormat {
	case formatTable, formatJSON, formatCSV:
		return flagFormat, nil
	default:
		return "", fmt.Errorf("unknown format %q (use table, json or csv)", flagFormat)
	}
}

// openOutput returns the destination writer, honoring --output. The returned
// close function is a no-op for stdout.
func openOutput() (io.Writer, func() error, error) {
	if flagOutput == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(flagOutput)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
