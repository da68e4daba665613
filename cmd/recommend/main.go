// Command recommend runs one dosing recommendation from the terminal
// against the same catalog, model and safety tables as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/absorpgen/absorpgen-api/app"
	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/config"
	"github.com/absorpgen/absorpgen-api/engine"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type recommendOptions struct {
	patient     entities.PatientProfile
	advanced    bool
	asJSON      bool
	medications []string
	allergies   []string
	conditions  []string
	painLevel   int
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &recommendOptions{}

	cmd := &cobra.Command{
		Use:   "recommend <drug or symptom>",
		Short: "Personalized dose recommendation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runRecommend(cmd.Context(), cmd.OutOrStdout(), query, opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.patient.Age, "age", 0, "patient age in years")
	flags.Float64Var(&opts.patient.WeightKg, "weight", 0, "patient weight in kg")
	flags.StringVar(&opts.patient.Sex, "sex", "", "patient sex (male or female)")
	flags.Float64Var(&opts.patient.HeightCm, "height", 0, "patient height in cm (optional)")
	flags.StringVar(&opts.patient.Route, "route", "oral", "route of administration")
	flags.BoolVar(&opts.advanced, "advanced", false, "show bioavailability, tmax and cmax")
	flags.BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	flags.StringSliceVar(&opts.medications, "meds", nil, "current medications")
	flags.StringSliceVar(&opts.allergies, "allergies", nil, "known allergies")
	flags.StringSliceVar(&opts.conditions, "conditions", nil, "existing conditions")
	flags.IntVar(&opts.painLevel, "pain", 0, "pain level 1-10, used when the query matches no drug or symptom")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("weight")
	_ = cmd.MarkFlagRequired("sex")

	cmd.AddCommand(newLookupCmd(opts))
	return cmd
}

func newLookupCmd(root *recommendOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <drug or brand>",
		Short: "Resolve a drug name against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := setup(cmd.Context(), root.logLevel)
			if err != nil {
				return err
			}
			drug, err := components.Engine.ResolveDrug(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), drug)
		},
		SilenceUsage: true,
	}
}

// setup builds the components and loads the catalog once
func setup(ctx context.Context, logLevel string) (*app.App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.InitLogger(logging.Options{Level: logging.ParseLogLevel(logLevel)})

	components, err := app.New(cfg)
	if err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := components.LoadCatalogOnce(loadCtx); err != nil {
		return nil, err
	}
	return components, nil
}

func runRecommend(ctx context.Context, out io.Writer, query string, opts *recommendOptions) error {
	components, err := setup(ctx, opts.logLevel)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := components.Engine.Recommend(ctx, entities.RecommendationRequest{
		Patient:            opts.patient,
		DrugOrSymptom:      query,
		AdvancedMode:       opts.advanced,
		CurrentMedications: opts.medications,
		Allergies:          opts.allergies,
		Conditions:         opts.conditions,
		PainLevel:          opts.painLevel,
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		return writeJSON(out, result)
	}
	_, err = fmt.Fprint(out, engine.RenderText(result, opts.advanced))
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
