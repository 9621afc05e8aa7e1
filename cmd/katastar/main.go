package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katastar/katastar/internal/client"
	"github.com/katastar/katastar/internal/config"
	"github.com/katastar/katastar/internal/logger"
	"github.com/katastar/katastar/internal/models"
	"github.com/katastar/katastar/internal/services"
)

var version = "0.1.0"

var (
	flagJSON    bool
	flagFormat  string
	flagOutput  string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "katastar",
		Short: "Croatian cadastre and land registry lookups",
		Long: `Katastar queries the Croatian land administration registry
(Uređena zemlja) for cadastral parcels and land registry units.

It resolves human-friendly identifiers (municipality names, parcel
numbers) down to the IDs the registry keys on, and renders ownership,
land use, and encumbrance data.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output raw JSON (shorthand for --format json)")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", formatTable, "output format: table, json or csv")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "write output to a file instead of stdout")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(officesCmd())
	rootCmd.AddCommand(municipalitiesCmd())
	rootCmd.AddCommand(parcelCmd())
	rootCmd.AddCommand(lrUnitCmd())
	rootCmd.AddCommand(batchFetchCmd())
	rootCmd.AddCommand(batchLRUnitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newEnv builds the client, service, and logger from the environment
// configuration.
func newEnv() (*client.Client, services.RegistryService, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	log := logger.Nop()
	if flagVerbose {
		log = logger.New("development")
	}

	c := client.New(cfg.Client, log)
	return c, services.NewRegistryService(c, log), log, nil
}

func officesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offices",
		Short: "List all regional cadastral offices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			c, _, _, err := newEnv()
			if err != nil {
				return err
			}

			offices, err := c.ListOffices(cmd.Context())
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case formatJSON:
				return printJSON(w, offices)
			case formatCSV:
				rows := make([][]string, 0, len(offices))
				for _, o := range offices {
					rows = append(rows, []string{o.ID, o.Name})
				}
				return writeCSV(w, []string{"id", "name"}, rows)
			default:
				for _, o := range offices {
					fmt.Fprintf(w, "%-6s %s\n", o.ID, o.Name)
				}
				return nil
			}
		},
	}
}

func municipalitiesCmd() *cobra.Command {
	var officeID, departmentID string

	cmd := &cobra.Command{
		Use:   "municipalities [term]",
		Short: "Search cadastral municipalities by name or code",
		Long: `Search cadastral municipalities by name or registration code,
optionally filtered by cadastral office or department.

Examples:
  katastar municipalities SAVAR
  katastar municipalities --office 114
  katastar municipalities LUKA --office 114 --department 116`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) > 0 {
				term = args[0]
			}
			if term == "" && officeID == "" && departmentID == "" {
				return fmt.Errorf("provide a search term or a filter flag")
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			c, _, _, err := newEnv()
			if err != nil {
				return err
			}

			results, err := c.SearchMunicipalities(cmd.Context(), term, officeID, departmentID)
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case formatJSON:
				return printJSON(w, results)
			case formatCSV:
				rows := make([][]string, 0, len(results))
				for _, m := range results {
					rows = append(rows, []string{m.MunicipalityRegNum, m.MunicipalityName(), m.InstitutionID})
				}
				return writeCSV(w, []string{"reg_num", "name", "office_id"}, rows)
			default:
				if len(results) == 0 {
					fmt.Fprintln(w, "No municipalities found.")
					return nil
				}
				for _, m := range results {
					fmt.Fprintf(w, "%-8s %-30s office %s\n", m.MunicipalityRegNum, m.MunicipalityName(), m.InstitutionID)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&officeID, "office", "", "filter by cadastral office ID")
	cmd.Flags().StringVar(&departmentID, "department", "", "filter by department ID")
	return cmd
}

func parcelCmd() *cobra.Command {
	var municipality string

	cmd := &cobra.Command{
		Use:   "parcel <parcel-number>",
		Short: "Show a cadastral parcel with possession data",
		Example: `  katastar parcel 279/6 --municipality SAVAR
  katastar parcel 279/6 --municipality 334979 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			_, svc, _, err := newEnv()
			if err != nil {
				return err
			}

			parcel, err := svc.LookupParcel(cmd.Context(), args[0], municipality)
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case formatJSON:
				return printJSON(w, parcel)
			case formatCSV:
				return writeCSV(w,
					[]string{"parcel_id", "parcel_number", "municipality", "municipality_name", "area_m2", "total_owners", "lr_unit_number", "main_book_id"},
					[][]string{parcelCSVRow(parcel)})
			default:
				printParcel(w, parcel)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&municipality, "municipality", "m", "", "municipality name or registration number (required)")
	cmd.MarkFlagRequired("municipality")
	return cmd
}

func lrUnitCmd() *cobra.Command {
	var (
		municipality string
		unitNumber   string
		mainBookID   int64
	)

	cmd := &cobra.Command{
		Use:   "lr-unit [parcel-number]",
		Short: "Show a land registry unit with ownership and encumbrances",
		Long: `Show a land registry unit (zemljišnoknjižni uložak).

Either resolve it from a parcel number within a municipality, or address
it directly by unit number and main book ID.

Examples:
  katastar lr-unit 279/6 --municipality SAVAR
  katastar lr-unit --number 769 --main-book 21277`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			c, svc, _, err := newEnv()
			if err != nil {
				return err
			}

			var unit *models.LandRegistryUnitDetailed
			switch {
			case unitNumber != "" && mainBookID != 0:
				unit, err = c.GetLRUnit(cmd.Context(), unitNumber, mainBookID, false)
			case len(args) == 1 && municipality != "":
				unit, err = svc.ResolveLRUnit(cmd.Context(), args[0], municipality)
			default:
				return fmt.Errorf("provide a parcel number with --municipality, or --number with --main-book")
			}
			if err != nil {
				return err
			}

			w, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case formatJSON:
				return printJSON(w, unit)
			case formatCSV:
				row, err := lrUnitCSVRow(unit)
				if err != nil {
					return err
				}
				return writeCSV(w,
					[]string{"lr_unit_number", "main_book", "status_name", "type_name", "total_parcels", "total_area_m2", "num_owners", "has_encumbrances", "is_condominium"},
					[][]string{row})
			default:
				return printLRUnit(w, unit)
			}
		},
	}

	cmd.Flags().StringVarP(&municipality, "municipality", "m", "", "municipality name or registration number")
	cmd.Flags().StringVar(&unitNumber, "number", "", "land registry unit number")
	cmd.Flags().Int64Var(&mainBookID, "main-book", 0, "main book ID")
	return cmd
}

func parcelCSVRow(p *models.ParcelInfo) []string {
	lrNumber, mainBook := "", ""
	if p.LRUnit != nil {
		lrNumber = p.LRUnit.LRUnitNumber
		mainBook = strconv.FormatInt(p.LRUnit.MainBookID, 10)
	}
	return []string{
		strconv.FormatInt(p.ParcelID, 10), p.ParcelNumber,
		p.CadMunicipalityRegNum, p.CadMunicipalityName,
		strconv.Itoa(p.AreaM2), strconv.Itoa(p.TotalOwners()),
		lrNumber, mainBook,
	}
}

func lrUnitCSVRow(u *models.LandRegistryUnitDetailed) ([]string, error) {
	sum, err := u.Summary()
	if err != nil {
		return nil, err
	}
	return []string{
		sum.UnitNumber, sum.MainBook, sum.StatusName, sum.TypeName,
		strconv.Itoa(sum.TotalParcels), strconv.Itoa(sum.TotalAreaM2), strconv.Itoa(sum.NumOwners),
		strconv.FormatBool(sum.HasEncumbrances), strconv.FormatBool(sum.IsCondominium),
	}, nil
}

func printParcel(w io.Writer, p *models.ParcelInfo) {
	fmt.Fprintf(w, "Parcel %s (%s)\n", p.ParcelNumber, p.CadMunicipalityName)
	fmt.Fprintf(w, "  ID:       %d\n", p.ParcelID)
	if p.Address != "" {
		fmt.Fprintf(w, "  Address:  %s\n", p.Address)
	}
	fmt.Fprintf(w, "  Area:     %d m2\n", p.AreaM2)

	if uses := p.LandUseSummary(); len(uses) > 0 {
		fmt.Fprintln(w, "  Land use:")
		for _, u := range uses {
			fmt.Fprintf(w, "    %-20s %6d m2\n", u.Name, u.AreaM2)
		}
	}

	for _, sheet := range p.PossessionSheets {
		fmt.Fprintf(w, "  Possession sheet %s:\n", sheet.PossessionSheetNumber)
		for _, pos := range sheet.Possessors {
			line := "    " + pos.Name
			if f, ok := pos.OwnershipFraction(); ok {
				line += "  " + f.String()
			}
			fmt.Fprintln(w, line)
		}
	}

	if p.LRUnit != nil {
		fmt.Fprintf(w, "  LR unit:  %s (main book %d)\n", p.LRUnit.LRUnitNumber, p.LRUnit.MainBookID)
	}
}

func printLRUnit(w io.Writer, u *models.LandRegistryUnitDetailed) error {
	summary, err := u.Summary()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "LR unit %s, main book %s (%s)\n", summary.UnitNumber, summary.MainBook, summary.StatusName)
	fmt.Fprintf(w, "  Type:         %s\n", summary.TypeName)
	if summary.IsCondominium {
		fmt.Fprintf(w, "  Condominium:  yes, %d units\n", summary.CondominiumUnits)
	}
	fmt.Fprintf(w, "  Parcels:      %d (total %d m2)\n", summary.TotalParcels, summary.TotalAreaM2)
	if numbers := u.SheetA.ParcelNumbers(); len(numbers) > 0 {
		fmt.Fprintf(w, "                %s\n", strings.Join(numbers, ", "))
	}

	owners, err := u.AllOwners()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  Owners:       %d\n", len(owners))
	for _, o := range owners {
		fmt.Fprintf(w, "    %s\n", o.Name)
	}

	if sum, partial := u.OwnershipB.KnownFractionSum(); !partial {
		fmt.Fprintf(w, "  Shares:       sum %s\n", sum.RatString())
	} else {
		fmt.Fprintf(w, "  Shares:       sum %s (some shares carry no fraction)\n", sum.RatString())
	}

	if u.HasEncumbrances() {
		fmt.Fprintln(w, "  Encumbrances:")
		for _, g := range u.SheetC.Groups {
			fmt.Fprintf(w, "    [%s] %s\n", g.RightType(), g.Description)
		}
	} else {
		fmt.Fprintln(w, "  Encumbrances: none")
	}

	for _, warning := range u.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	return nil
}
