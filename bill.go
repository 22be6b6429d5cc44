package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/prompts"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
	"github.com/Natthapon12-yod/smartatsai/internal/transport"
)

type billOptions struct {
	units   string
	class   string
	hint    string
	peak    string
	subsidy bool
	date    string
	asJSON  bool
}

func newBillCmd() *cobra.Command {
	var opts billOptions
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Compute a bill from the tariff catalog",
		Long: `Compute an itemised bill without involving any language model.

Examples:
  smartats bill --units 120
  smartats bill --units 200 --hint agricultural
  smartats bill --units 300 --class TOU-1.2.2 --peak 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runBill(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.units, "units", "", "units consumed (kWh)")
	cmd.Flags().StringVar(&opts.class, "class", "", "rate class id; skips classification")
	cmd.Flags().StringVar(&opts.hint, "hint", "", "classification hint: agricultural or tou")
	cmd.Flags().StringVar(&opts.peak, "peak", "", "peak units for time-of-use classes")
	cmd.Flags().BoolVar(&opts.subsidy, "subsidy", false, "customer is eligible for the state subsidy")
	cmd.Flags().StringVar(&opts.date, "date", "", "billing date YYYY-MM-DD (default BILLING_DATE or today)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the breakdown as JSON")
	_ = cmd.MarkFlagRequired("units")
	return cmd
}

func runBill(cmd *cobra.Command, cfg *AppConfig, opts billOptions) error {
	catalog, err := cfg.loadCatalog()
	if err != nil {
		return err
	}
	date, err := resolveDate(cfg, opts.date, catalog.Settings().Location)
	if err != nil {
		return err
	}

	if opts.class != "" && !catalog.Has(opts.class) {
		return fmt.Errorf("%w: %q (known: %s)", tariff.ErrUnknownRateClass, opts.class, classIDs(catalog, date))
	}

	units, err := decimal.NewFromString(opts.units)
	if err != nil {
		return fmt.Errorf("invalid --units %q: %w", opts.units, err)
	}
	hint, err := tariff.ParseHint(opts.hint)
	if err != nil {
		return err
	}
	req := tariff.BillingRequest{
		Units:           units,
		RequestedClass:  opts.class,
		Hint:            hint,
		BillingDate:     date,
		SubsidyEligible: opts.subsidy,
	}
	if opts.peak != "" {
		peak, err := decimal.NewFromString(opts.peak)
		if err != nil {
			return fmt.Errorf("invalid --peak %q: %w", opts.peak, err)
		}
		req.PeakUnits = &peak
	}

	bill, err := tariff.NewEngine(catalog).Bill(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(bill)
	}
	text, err := prompts.RenderBill(cmd.Context(), cfg.Prompt, bill)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, transport.StripMarkdown(text))
	return err
}

func newClassesCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the rate classes effective on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := cfg.loadCatalog()
			if err != nil {
				return err
			}
			d, err := resolveDate(cfg, date, catalog.Settings().Location)
			if err != nil {
				return err
			}
			if d.IsZero() {
				d = time.Now()
			}

			classes := catalog.Active(d)
			if len(classes) == 0 {
				return fmt.Errorf("%w: no rate class covers %s", tariff.ErrTariffPeriodExpired, d.In(catalog.Settings().Location).Format(time.DateOnly))
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSERVICE FEE\tEFFECTIVE")
			for _, rc := range classes {
				to := "open"
				if !rc.EffectiveTo.IsZero() {
					to = rc.EffectiveTo.Format(time.DateOnly)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s\n", rc.ID, rc.Name, rc.ServiceFee.StringFixed(2), rc.EffectiveFrom.Format(time.DateOnly), to)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default BILLING_DATE or today)")
	return cmd
}

// classIDs lists the ids effective on date, or the latest ones when none are.
func classIDs(catalog *tariff.Catalog, date time.Time) string {
	if date.IsZero() {
		date = time.Now()
	}
	classes := catalog.Active(date)
	if len(classes) == 0 {
		classes = catalog.Latest()
	}
	ids := make([]string, 0, len(classes))
	for _, rc := range classes {
		ids = append(ids, rc.ID)
	}
	return strings.Join(ids, ", ")
}

// resolveDate prefers the flag, then BILLING_DATE. Zero means "use the clock".
func resolveDate(cfg *AppConfig, flag string, loc *time.Location) (time.Time, error) {
	if flag != "" {
		return parseDate(flag, loc)
	}
	return cfg.fixedBillingDate(loc)
}
