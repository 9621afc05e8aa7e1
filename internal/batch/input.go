// Package batch implements multi-item registry lookups: parsing parcel and
// land registry unit specifications from CLI lists or CSV/JSON files, running
// the lookups one by one, and collecting per-item results so a single failure
// never discards the rest of the run.
package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParcelInput is one parcel specification in a batch: either a direct parcel
// ID, or a parcel number scoped to a municipality. Exactly one of ParcelID
// and ParcelNumber is set.
type ParcelInput struct {
	ParcelNumber string
	ParcelID     string
	Municipality string
}

// IsDirectID reports whether this input addresses the parcel by ID rather
// than by number within a municipality.
func (in ParcelInput) IsDirectID() bool {
	return in.ParcelID != ""
}

func (in ParcelInput) String() string {
	if in.IsDirectID() {
		return "id:" + in.ParcelID
	}
	return in.ParcelNumber + " (" + in.Municipality + ")"
}

// LRUnitInput is one land registry unit specification in a batch.
type LRUnitInput struct {
	UnitNumber string `json:"lr_unit_number"`
	MainBookID int64  `json:"main_book_id"`
}

// isParcelID distinguishes direct parcel IDs from parcel numbers in mixed
// text: registry parcel IDs are long numeric strings, while parcel numbers
// are short and usually carry a slash ("103/2").
func isParcelID(item string) bool {
	if len(item) < 8 {
		return false
	}
	for _, r := range item {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseParcelList parses a comma-separated CLI list such as "103/2,45,396/1".
// All items must be of the same kind: either parcel numbers (municipality
// required) or direct parcel IDs (municipality ignored).
func ParseParcelList(list, municipality string) ([]ParcelInput, error) {
	var items []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("parcel list is empty")
	}

	ids := 0
	for _, item := range items {
		if isParcelID(item) {
			ids++
		}
	}
	if ids > 0 && ids < len(items) {
		return nil, fmt.Errorf("cannot mix parcel numbers and parcel IDs in the same batch")
	}

	inputs := make([]ParcelInput, 0, len(items))
	if ids == len(items) {
		for _, item := range items {
			inputs = append(inputs, ParcelInput{ParcelID: item})
		}
		return inputs, nil
	}

	if strings.TrimSpace(municipality) == "" {
		return nil, fmt.Errorf("municipality required for parcel number lookups")
	}
	for _, item := range items {
		inputs = append(inputs, ParcelInput{ParcelNumber: item, Municipality: municipality})
	}
	return inputs, nil
}

// ParseParcelFile parses a .csv or .json file of parcel specifications,
// picking the parser from the file extension.
func ParseParcelFile(path string) ([]ParcelInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return parseParcelCSV(f)
	case ".json":
		return parseParcelJSON(f)
	default:
		return nil, fmt.Errorf("unsupported input format %q (use .csv or .json)", ext)
	}
}

// parseParcelCSV reads one of two layouts: a "parcel_number,municipality"
// table where an empty municipality cell inherits the value from the previous
// row, or a single-column "parcel_id" table. The two layouts cannot be mixed.
func parseParcelCSV(r io.Reader) ([]ParcelInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	numberCol, hasNumber := columns["parcel_number"]
	idCol, hasID := columns["parcel_id"]
	municipalityCol, hasMunicipality := columns["municipality"]

	if hasNumber && hasID {
		return nil, fmt.Errorf("csv cannot have both parcel_number and parcel_id columns")
	}
	if !hasNumber && !hasID {
		return nil, fmt.Errorf("csv must have a parcel_number or parcel_id column")
	}

	cell := func(record []string, col int) string {
		if col < len(record) {
			return strings.TrimSpace(record[col])
		}
		return ""
	}

	var inputs []ParcelInput
	lastMunicipality := ""
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}

		if hasID {
			id := cell(record, idCol)
			if id == "" {
				return nil, fmt.Errorf("csv row %d: parcel_id cannot be empty", row)
			}
			inputs = append(inputs, ParcelInput{ParcelID: id})
			continue
		}

		number := cell(record, numberCol)
		if number == "" {
			return nil, fmt.Errorf("csv row %d: parcel_number cannot be empty", row)
		}
		municipality := ""
		if hasMunicipality {
			municipality = cell(record, municipalityCol)
		}
		if municipality != "" {
			lastMunicipality = municipality
		} else if lastMunicipality != "" {
			municipality = lastMunicipality
		} else {
			return nil, fmt.Errorf("csv row %d: municipality required (no previous row to inherit from)", row)
		}
		inputs = append(inputs, ParcelInput{ParcelNumber: number, Municipality: municipality})
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no parcels found in csv file")
	}
	return inputs, nil
}

func parseParcelJSON(r io.Reader) ([]ParcelInput, error) {
	var items []struct {
		ParcelNumber string `json:"parcel_number"`
		ParcelID     string `json:"parcel_id"`
		Municipality string `json:"municipality"`
	}
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("json input: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("json input is empty")
	}

	inputs := make([]ParcelInput, 0, len(items))
	sawNumber, sawID := false, false
	for i, item := range items {
		number := strings.TrimSpace(item.ParcelNumber)
		id := strings.TrimSpace(item.ParcelID)
		municipality := strings.TrimSpace(item.Municipality)

		switch {
		case number != "" && id != "":
			return nil, fmt.Errorf("item %d: cannot have both parcel_number and parcel_id", i)
		case number == "" && id == "":
			return nil, fmt.Errorf("item %d: parcel_number or parcel_id required", i)
		case number != "" && municipality == "":
			return nil, fmt.Errorf("item %d: municipality required with parcel_number", i)
		}

		sawNumber = sawNumber || number != ""
		sawID = sawID || id != ""
		if sawNumber && sawID {
			return nil, fmt.Errorf("item %d: cannot mix parcel numbers and parcel IDs in the same batch", i)
		}

		if id != "" {
			inputs = append(inputs, ParcelInput{ParcelID: id})
		} else {
			inputs = append(inputs, ParcelInput{ParcelNumber: number, Municipality: municipality})
		}
	}
	return inputs, nil
}

// ParseLRUnitFile parses a .csv or .json file of land registry unit
// specifications (unit number plus main book ID).
func ParseLRUnitFile(path string) ([]LRUnitInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return parseLRUnitCSV(f)
	case ".json":
		return parseLRUnitJSON(f)
	default:
		return nil, fmt.Errorf("unsupported input format %q (use .csv or .json)", ext)
	}
}

func parseLRUnitCSV(r io.Reader) ([]LRUnitInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	numberCol, hasNumber := columns["lr_unit_number"]
	bookCol, hasBook := columns["main_book_id"]
	if !hasNumber || !hasBook {
		return nil, fmt.Errorf("csv must have lr_unit_number and main_book_id columns")
	}

	var inputs []LRUnitInput
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}

		number := ""
		if numberCol < len(record) {
			number = strings.TrimSpace(record[numberCol])
		}
		book := ""
		if bookCol < len(record) {
			book = strings.TrimSpace(record[bookCol])
		}
		if number == "" {
			return nil, fmt.Errorf("csv row %d: lr_unit_number cannot be empty", row)
		}
		bookID, err := strconv.ParseInt(book, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: main_book_id must be an integer", row)
		}
		inputs = append(inputs, LRUnitInput{UnitNumber: number, MainBookID: bookID})
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no land registry units found in csv file")
	}
	return inputs, nil
}

func parseLRUnitJSON(r io.Reader) ([]LRUnitInput, error) {
	var inputs []LRUnitInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("json input: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("json input is empty")
	}
	for i, in := range inputs {
		if strings.TrimSpace(in.UnitNumber) == "" {
			return nil, fmt.Errorf("item %d: lr_unit_number is required", i)
		}
		if in.MainBookID == 0 {
			return nil, fmt.Errorf("item %d: main_book_id is required", i)
		}
	}
	return inputs, nil
}

// ParseBatchOutput extracts the unique land registry unit references from a
// JSON results file written by a parcel batch run, so unit lookups can be
// chained onto a parcel batch.
func ParseBatchOutput(path string) ([]LRUnitInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Results []struct {
			Status     string `json:"status"`
			UnitNumber string `json:"lr_unit_number"`
			MainBookID int64  `json:"main_book_id"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		// A bare array of results is also accepted.
		if err := json.Unmarshal(raw, &doc.Results); err != nil {
			return nil, fmt.Errorf("batch output: %w", err)
		}
	}

	seen := make(map[LRUnitInput]struct{})
	var inputs []LRUnitInput
	for _, r := range doc.Results {
		if r.Status != "success" || r.UnitNumber == "" || r.MainBookID == 0 {
			continue
		}
		ref := LRUnitInput{UnitNumber: r.UnitNumber, MainBookID: r.MainBookID}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		inputs = append(inputs, ref)
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no land registry unit references found in batch output")
	}
	return inputs, nil
}
