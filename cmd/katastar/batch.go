package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/katastar/katastar/internal/batch"
	"github.com/katastar/katastar/internal/client"
	"github.com/katastar/katastar/internal/services"
)

// batchLookup pairs the raw client with the resolution service so it covers
// both lookup surfaces the batch processor needs.
type batchLookup struct {
	*client.Client
	services.RegistryService
}

func batchFetchCmd() *cobra.Command {
	var (
		inputFile    string
		municipality string
		stopOnError  bool
	)

	cmd := &cobra.Command{
		Use:   "batch-fetch [parcels]",
		Short: "Fetch many cadastral parcels in one run",
		Long: `Fetch information for multiple parcels, collecting per-item results so
one failed lookup never discards the rest of the run.

Parcels come either from a comma-separated list, or from a CSV/JSON file.

CSV with parcel numbers (an empty municipality cell inherits the previous row):
  parcel_number,municipality
  103/2,334979
  45,

CSV with direct parcel IDs:
  parcel_id
  12345678

JSON:
  [{"parcel_number": "103/2", "municipality": "334979"}]
  [{"parcel_id": "12345678"}]

Examples:
  katastar batch-fetch "103/2,45,396/1" -m SAVAR
  katastar batch-fetch --input parcels.csv --format csv -o results.csv
  katastar batch-fetch --input parcels.json --format json -o results.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			var inputs []batch.ParcelInput
			switch {
			case len(args) == 1 && inputFile != "":
				return fmt.Errorf("provide a parcel list or --input file, not both")
			case len(args) == 1:
				inputs, err = batch.ParseParcelList(args[0], municipality)
			case inputFile != "":
				inputs, err = batch.ParseParcelFile(inputFile)
			default:
				return fmt.Errorf("provide a parcel list or --input file")
			}
			if err != nil {
				return err
			}

			c, svc, log, err := newEnv()
			if err != nil {
				return err
			}

			summary, procErr := batch.ProcessParcels(cmd.Context(), batchLookup{c, svc}, inputs, stopOnError, log)

			w, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case formatJSON:
				err = printJSON(w, batchDocument{Summary: batchTotals(summary.Total, summary.Successful, summary.Failed), Results: parcelRows(summary)})
			case formatCSV:
				err = writeCSV(w, parcelCSVHeader, parcelCSVRows(summary))
			default:
				printParcelBatch(w, summary)
			}
			if err != nil {
				return err
			}

			if procErr != nil {
				return procErr
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d lookups failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "CSV or JSON file with parcel specifications")
	cmd.Flags().StringVarP(&municipality, "municipality", "m", "", "municipality name or registration number (list mode)")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort the run on the first failed lookup")
	return cmd
}

func batchLRUnitCmd() *cobra.Command {
	var (
		inputFile   string
		fromBatch   string
		stopOnError bool
	)

	cmd := &cobra.Command{
		Use:   "batch-lr-unit",
		Short: "Fetch many land registry units in one run",
		Long: `Fetch multiple land registry units, either from a CSV/JSON file of unit
references, or chained from a previous batch-fetch JSON output (unique
lr_unit_number/main_book_id pairs of the successful rows).

CSV:
  lr_unit_number,main_book_id
  769,21277

JSON:
  [{"lr_unit_number": "769", "main_book_id": 21277}]

Examples:
  katastar batch-lr-unit --input units.csv
  katastar batch-fetch --input parcels.csv --format json -o parcels.json
  katastar batch-lr-unit --from-batch-output parcels.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			var inputs []batch.LRUnitInput
			switch {
			case inputFile != "" && fromBatch != "":
				return fmt.Errorf("provide --input or --from-batch-output, not both")
			case inputFile != "":
				inputs, err = batch.ParseLRUnitFile(inputFile)
			case fromBatch != "":
				inputs, err = batch.ParseBatchOutput(fromBatch)
			default:
				return fmt.Errorf("provide --input or --from-batch-output")
			}
			if err != nil {
				return err
			}

			c, _, log, err := newEnv()
			if err != nil {
				return err
			}

			summary, procErr := batch.ProcessLRUnits(cmd.Context(), c, inputs, stopOnError, log)

			w, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case formatJSON:
				err = printJSON(w, batchDocument{Summary: batchTotals(summary.Total, summary.Successful, summary.Failed), Results: lrUnitRows(summary)})
			case formatCSV:
				err = writeCSV(w, lrUnitCSVHeader, lrUnitCSVRows(summary))
			default:
				err = printLRUnitBatch(w, summary)
			}
			if err != nil {
				return err
			}

			if procErr != nil {
				return procErr
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d lookups failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "CSV or JSON file with unit references")
	cmd.Flags().StringVarP(&fromBatch, "from-batch-output", "b", "", "batch-fetch JSON output to take unit references from")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort the run on the first failed lookup")
	return cmd
}

// batchDocument is the JSON envelope shared by both batch commands. The row
// keys are stable: batch-lr-unit --from-batch-output reads them back.
type batchDocument struct {
	Summary batchSummaryDoc `json:"summary"`
	Results interface{}     `json:"results"`
}

type batchSummaryDoc struct {
	Total       int    `json:"total"`
	Successful  int    `json:"successful"`
	Failed      int    `json:"failed"`
	SuccessRate string `json:"success_rate"`
}

func batchTotals(total, successful, failed int) batchSummaryDoc {
	rate := 0.0
	if total > 0 {
		rate = float64(successful) / float64(total) * 100
	}
	return batchSummaryDoc{
		Total:       total,
		Successful:  successful,
		Failed:      failed,
		SuccessRate: fmt.Sprintf("%.1f%%", rate),
	}
}

type parcelRow struct {
	Status             string `json:"status"`
	ParcelID           string `json:"parcel_id,omitempty"`
	ParcelNumber       string `json:"parcel_number,omitempty"`
	MunicipalityRegNum string `json:"municipality,omitempty"`
	MunicipalityName   string `json:"municipality_name,omitempty"`
	AreaM2             int    `json:"area_m2,omitempty"`
	TotalOwners        int    `json:"total_owners,omitempty"`
	LRUnitNumber       string `json:"lr_unit_number,omitempty"`
	MainBookID         int64  `json:"main_book_id,omitempty"`
	ErrorKind          string `json:"error_kind,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

func parcelRows(s batch.ParcelSummary) []parcelRow {
	rows := make([]parcelRow, 0, len(s.Results))
	for _, r := range s.Results {
		row := parcelRow{
			Status:             "success",
			ParcelID:           r.Input.ParcelID,
			ParcelNumber:       r.Input.ParcelNumber,
			MunicipalityRegNum: r.Input.Municipality,
		}
		if r.OK() {
			p := r.Parcel
			row.ParcelID = strconv.FormatInt(p.ParcelID, 10)
			row.ParcelNumber = p.ParcelNumber
			row.MunicipalityRegNum = p.CadMunicipalityRegNum
			row.MunicipalityName = p.CadMunicipalityName
			row.AreaM2 = p.AreaM2
			row.TotalOwners = p.TotalOwners()
			if p.LRUnit != nil {
				row.LRUnitNumber = p.LRUnit.LRUnitNumber
				row.MainBookID = p.LRUnit.MainBookID
			}
		} else {
			row.Status = "error"
			row.ErrorKind = r.ErrorKind()
			row.ErrorMessage = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

var parcelCSVHeader = []string{
	"status", "parcel_id", "parcel_number", "municipality", "municipality_name",
	"area_m2", "total_owners", "lr_unit_number", "main_book_id", "error_kind", "error_message",
}

func parcelCSVRows(s batch.ParcelSummary) [][]string {
	rows := make([][]string, 0, len(s.Results))
	for _, r := range parcelRows(s) {
		mainBook := ""
		if r.MainBookID != 0 {
			mainBook = strconv.FormatInt(r.MainBookID, 10)
		}
		area := ""
		if r.Status == "success" {
			area = strconv.Itoa(r.AreaM2)
		}
		owners := ""
		if r.Status == "success" {
			owners = strconv.Itoa(r.TotalOwners)
		}
		rows = append(rows, []string{
			r.Status, r.ParcelID, r.ParcelNumber, r.MunicipalityRegNum, r.MunicipalityName,
			area, owners, r.LRUnitNumber, mainBook, r.ErrorKind, r.ErrorMessage,
		})
	}
	return rows
}

func printParcelBatch(w io.Writer, s batch.ParcelSummary) {
	fmt.Fprintf(w, "Processed %d parcels: %d succeeded, %d failed (%.1f%% success)\n\n",
		s.Total, s.Successful, s.Failed, s.SuccessRate())

	for i, r := range s.Results {
		if !r.OK() {
			fmt.Fprintf(w, "%3d  fail  %-24s %s\n", i+1, r.Input.String(), r.Err)
			continue
		}
		p := r.Parcel
		lrRef := "-"
		if p.LRUnit != nil {
			lrRef = fmt.Sprintf("%s/%d", p.LRUnit.LRUnitNumber, p.LRUnit.MainBookID)
		}
		fmt.Fprintf(w, "%3d  ok    %-12s %-20s %8d m2  owners %2d  lr-unit %s\n",
			i+1, p.ParcelNumber, p.CadMunicipalityName, p.AreaM2, p.TotalOwners(), lrRef)
	}
}

type lrUnitRow struct {
	Status          string `json:"status"`
	UnitNumber      string `json:"lr_unit_number"`
	MainBookID      int64  `json:"main_book_id"`
	MainBookName    string `json:"main_book_name,omitempty"`
	StatusName      string `json:"status_name,omitempty"`
	TotalParcels    int    `json:"total_parcels,omitempty"`
	TotalAreaM2     int    `json:"total_area_m2,omitempty"`
	NumOwners       int    `json:"num_owners,omitempty"`
	HasEncumbrances bool   `json:"has_encumbrances,omitempty"`
	ErrorKind       string `json:"error_kind,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

func lrUnitRows(s batch.LRUnitSummary) []lrUnitRow {
	rows := make([]lrUnitRow, 0, len(s.Results))
	for _, r := range s.Results {
		row := lrUnitRow{
			Status:     "success",
			UnitNumber: r.Input.UnitNumber,
			MainBookID: r.Input.MainBookID,
		}
		if r.OK() {
			sum, err := r.Unit.Summary()
			if err != nil {
				row.Status = "error"
				row.ErrorKind = "internal"
				row.ErrorMessage = err.Error()
			} else {
				row.MainBookName = sum.MainBook
				row.StatusName = sum.StatusName
				row.TotalParcels = sum.TotalParcels
				row.TotalAreaM2 = sum.TotalAreaM2
				row.NumOwners = sum.NumOwners
				row.HasEncumbrances = sum.HasEncumbrances
			}
		} else {
			row.Status = "error"
			row.ErrorKind = r.ErrorKind()
			row.ErrorMessage = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

var lrUnitCSVHeader = []string{
	"status", "lr_unit_number", "main_book_id", "main_book_name", "status_name",
	"total_parcels", "total_area_m2", "num_owners", "has_encumbrances", "error_kind", "error_message",
}

func lrUnitCSVRows(s batch.LRUnitSummary) [][]string {
	rows := make([][]string, 0, len(s.Results))
	for _, r := range lrUnitRows(s) {
		parcels, area, owners, encumbrances := "", "", "", ""
		if r.Status == "success" {
			parcels = strconv.Itoa(r.TotalParcels)
			area = strconv.Itoa(r.TotalAreaM2)
			owners = strconv.Itoa(r.NumOwners)
			encumbrances = strconv.FormatBool(r.HasEncumbrances)
		}
		rows = append(rows, []string{
			r.Status, r.UnitNumber, strconv.FormatInt(r.MainBookID, 10), r.MainBookName, r.StatusName,
			parcels, area, owners, encumbrances, r.ErrorKind, r.ErrorMessage,
		})
	}
	return rows
}

func printLRUnitBatch(w io.Writer, s batch.LRUnitSummary) error {
	fmt.Fprintf(w, "Processed %d units: %d succeeded, %d failed (%.1f%% success)\n",
		s.Total, s.Successful, s.Failed, s.SuccessRate())

	for _, r := range s.Results {
		fmt.Fprintln(w, "---")
		if !r.OK() {
			fmt.Fprintf(w, "LR unit %s, main book %d: %s\n", r.Input.UnitNumber, r.Input.MainBookID, r.Err)
			continue
		}
		if err := printLRUnit(w, r.Unit); err != nil {
			return err
		}
	}
	return nil
}
