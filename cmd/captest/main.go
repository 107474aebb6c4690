// Command captest runs a solar PV capacity test from measured and simulated
// dataset files and prints the pass/fail report.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rlpappan/pvcaptest/adapters/postgres"
	"github.com/rlpappan/pvcaptest/app"
	domain "github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dasFile      string
		simFile      string
		nameplate    float64
		tolerance    string
		poa          float64
		tAmb         float64
		wVel         float64
		checkPValues bool
		pval         float64
		filterPasses int
		store        bool
	)

	cmd := &cobra.Command{
		Use:   "captest",
		Short: "Run a PV plant capacity test",
		Long: `Run a capacity test comparing measured (DAS) performance data against a
simulated performance model at standard reporting conditions.

Example:
  captest --das das.csv --sim sim.csv --nameplate 20000 \
	  --tolerance "+/- 4" --poa 850 --t-amb 25 --w-vel 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err == nil {
				cmd.Println("loaded environment from .env")
			}

			params := app.RunParams{
				DASFile:   dasFile,
				SimFile:   simFile,
				Nameplate: nameplate,
				Tolerance: tolerance,
				Condition: domain.ReportingCondition{
					POA:  poa,
					TAmb: tAmb,
					WVel: wVel,
				},
				CheckPValues: checkPValues,
				PValueCutoff: pval,
				FilterPasses: filterPasses,
			}

			ctx := context.Background()
			outcome, err := app.NewCapacityService().Execute(ctx, params)
			if err != nil {
				return err
			}

			cmd.Print(report.Text(outcome.Result))
			cmd.Printf("%-30s%.3f\n", "Regression uncertainty:", outcome.Uncertainty)
			cmd.Println()
			cmd.Print(report.FilterHistoryText(outcome.Steps))

			if store {
				if err := persist(ctx, outcome); err != nil {
					return err
				}
				cmd.Printf("stored run %s\n", outcome.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dasFile, "das", "", "measured (DAS) dataset file (xlsx or csv)")
	cmd.Flags().StringVar(&simFile, "sim", "", "simulated dataset file (xlsx or csv)")
	cmd.Flags().Float64Var(&nameplate, "nameplate", 0, "AC nameplate rating of the plant")
	cmd.Flags().StringVar(&tolerance, "tolerance", "+/- 10", "tolerance spec, e.g. '+/- 10'")
	cmd.Flags().Float64Var(&poa, "poa", 0, "reporting condition irradiance")
	cmd.Flags().Float64Var(&tAmb, "t-amb", 0, "reporting condition ambient temperature")
	cmd.Flags().Float64Var(&wVel, "w-vel", 0, "reporting condition wind velocity")
	cmd.Flags().BoolVar(&checkPValues, "check-pvalues", false, "zero coefficients with high p-values")
	cmd.Flags().Float64Var(&pval, "pval", 0.05, "p-value cutoff for coefficient pruning")
	cmd.Flags().IntVar(&filterPasses, "filter-passes", 1, "regression-filter rounds per dataset")
	cmd.Flags().BoolVar(&store, "store", false, "persist the run to Postgres (DATABASE_URL)")
	cmd.MarkFlagRequired("das")
	cmd.MarkFlagRequired("sim")
	cmd.MarkFlagRequired("nameplate")

	return cmd
}

func persist(ctx context.Context, outcome *app.RunOutcome) error {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return fmt.Errorf("--store requires DATABASE_URL")
	}
	db, err := postgres.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	run := postgres.NewCapacityRun(outcome.ID, outcome.Result, outcome.Uncertainty)
	return repo.InsertRun(ctx, run, outcome.Steps)
}
