package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ballha123/wifak-banque/internal/batch"
	"github.com/ballha123/wifak-banque/internal/delegation"
	"github.com/ballha123/wifak-banque/internal/store"
	"github.com/ballha123/wifak-banque/internal/util"
)

type options struct {
	dossier    delegation.Dossier
	asset      string
	reference  string
	csvPath    string
	policyPath string
	route      string
	format     string
	journal    string
}

type outcome struct {
	Line      int                `json:"line,omitempty"`
	Reference string             `json:"reference,omitempty"`
	Level     string             `json:"level,omitempty"`
	Label     string             `json:"label,omitempty"`
	Circuit   string             `json:"circuit,omitempty"`
	Reasons   []string           `json:"reasons,omitempty"`
	Dossier   delegation.Dossier `json:"dossier"`
	Error     string             `json:"error,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logrus.Fatalf("delegation: %v", err)
	}
}

func parseFlags(args []string) (options, error) {
	defaults := delegation.DefaultDossier()
	opts := options{}

	fs := flag.NewFlagSet("delegation", flag.ContinueOnError)
	fs.IntVar(&opts.dossier.BCTClass, "bct", defaults.BCTClass, "BCT risk class (0, 1, 2 for 2 or worse)")
	fs.IntVar(&opts.dossier.MonthsActive, "months", defaults.MonthsActive, "Client relationship tenure in months")
	fs.StringVar(&opts.asset, "asset", string(defaults.AssetType), "Asset type (NEW_STANDARD, USED, SPECIALIZED, TAXI_OR_RENTAL)")
	fs.Float64Var(&opts.dossier.RequestedAmount, "amount", defaults.RequestedAmount, "Requested amount in kDT")
	fs.Float64Var(&opts.dossier.TotalExposure, "exposure", defaults.TotalExposure, "Total relationship exposure in kDT")
	fs.Float64Var(&opts.dossier.FirstInstallmentRatio, "first-installment", defaults.FirstInstallmentRatio, "First installment as % of asset value")
	fs.Float64Var(&opts.dossier.Rate, "rate", defaults.Rate, "Applied rate in %")
	fs.Float64Var(&opts.dossier.ExpenseToIncomeRatio, "expense-ratio", defaults.ExpenseToIncomeRatio, "Expense to income ratio in %")
	fs.StringVar(&opts.reference, "ref", "", "Optional dossier reference")
	fs.StringVar(&opts.csvPath, "csv", "", "Evaluate every dossier of a CSV file instead of the flags")
	fs.StringVar(&opts.policyPath, "policy", "", "Path to a YAML escalation policy")
	fs.StringVar(&opts.route, "risk-pole-route", "", "Override where a BCT class above 1 goes from the risk pole (DGA or COMITE)")
	fs.StringVar(&opts.format, "format", "text", "Output format: text or json")
	fs.StringVar(&opts.journal, "journal", "", "Optional SQLite journal to record evaluations")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	asset, err := delegation.ParseAssetType(opts.asset)
	if err != nil {
		return options{}, err
	}
	opts.dossier.AssetType = asset

	switch opts.format {
	case "text", "json":
	default:
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	return opts, nil
}

func loadPolicy(opts options) (delegation.Policy, error) {
	policy := delegation.DefaultPolicy()
	if opts.policyPath != "" {
		loaded, err := delegation.LoadPolicy(opts.policyPath)
		if err != nil {
			return delegation.Policy{}, err
		}
		policy = loaded
	}
	if opts.route != "" {
		level, err := delegation.ParseLevel(opts.route)
		if err != nil {
			return delegation.Policy{}, err
		}
		policy.RiskPoleBCTEscalation = level
	}
	return policy, policy.Validate()
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	policy, err := loadPolicy(opts)
	if err != nil {
		return err
	}
	engine, err := delegation.NewEngine(policy)
	if err != nil {
		return err
	}

	var db *store.Database
	if opts.journal != "" {
		if err := os.MkdirAll(filepath.Dir(opts.journal), 0o755); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
		db, err = store.Open(opts.journal, true)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logrus.WithError(cerr).Warn("close journal")
			}
		}()
	}

	var rows []batch.Row
	if opts.csvPath != "" {
		f, err := os.Open(filepath.Clean(opts.csvPath))
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		rows, err = batch.ReadDossiers(f)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		rows = []batch.Row{{Reference: opts.reference, Dossier: opts.dossier}}
	}

	outcomes := make([]outcome, 0, len(rows))
	for _, row := range rows {
		o := outcome{Line: row.Line, Reference: row.Reference, Dossier: row.Dossier}
		if row.Err != nil {
			o.Error = row.Err.Error()
			outcomes = append(outcomes, o)
			continue
		}

		timer := util.StartTimer()
		result := engine.Evaluate(row.Dossier)
		elapsed := timer.ElapsedUs()

		info := result.Info()
		o.Level = info.Code
		o.Label = info.Label
		o.Circuit = info.Circuit
		o.Reasons = result.Reasons
		outcomes = append(outcomes, o)

		if db != nil {
			entry := store.NewEvaluation(uuid.NewString(), "cli", row.Dossier, result, policy.Reference, elapsed)
			if err := db.SaveEvaluation(entry); err != nil {
				logrus.WithError(err).WithField("line", row.Line).Warn("journal evaluation")
			}
		}
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if opts.csvPath == "" {
			return enc.Encode(outcomes[0])
		}
		return enc.Encode(outcomes)
	}
	return writeText(out, outcomes)
}

func writeText(out io.Writer, outcomes []outcome) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, o := range outcomes {
		name := o.Reference
		if name == "" && o.Line > 0 {
			name = fmt.Sprintf("line %d", o.Line)
		}
		if o.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR\t%s\n", name, o.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, o.Level, o.Label, o.Circuit)
		if len(o.Reasons) == 0 {
			fmt.Fprintf(tw, "\t\tstandard approval, no exception\t\n")
		}
		for _, reason := range o.Reasons {
			fmt.Fprintf(tw, "\t\t- %s\t\n", reason)
		}
	}
	return tw.Flush()
}
