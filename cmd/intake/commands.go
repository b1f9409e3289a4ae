package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/NERVsystems/arogyajal/pkg/hydration"
	"github.com/NERVsystems/arogyajal/pkg/tools"
	"github.com/NERVsystems/arogyajal/pkg/version"
)

// errInvalidForm is returned after the field messages have been printed.
var errInvalidForm = errors.New("invalid form")

type cliOptions struct {
	verbose bool
	asJSON  bool
	form    hydration.FormValues
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "intake",
		Short: "Recommend a daily water intake",
		Long: `intake computes a daily water intake recommendation from age, body
weight, activity level and climate.

Examples:
  intake calculate --age 30 --weight 70 --activity moderate --climate hot
  intake validate --age 200 --weight 70
  intake options --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		newCalculateCmd(opts),
		newValidateCmd(opts),
		newOptionsCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)
	return root
}

func addFormFlags(cmd *cobra.Command, opts *cliOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.form.Age, "age", "", "age in years (1-120)")
	f.StringVar(&opts.form.Weight, "weight", "", "body weight in kg (10-300)")
	f.StringVar(&opts.form.Activity, "activity", "", "activity level: low, moderate, high, very-high")
	f.StringVar(&opts.form.Climate, "climate", "", "climate: cool, moderate, hot, very-hot")
}

func (o *cliOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func newCalculateCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate the recommended daily intake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalculate(cmd.Context(), cmd.OutOrStdout(), opts, opts.logger(cmd))
		},
	}
	addFormFlags(cmd, opts)
	return cmd
}

func runCalculate(ctx context.Context, out io.Writer, opts *cliOptions, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := tools.CalculateIntake(ctx, opts.form, logger)
	if err != nil {
		var formErrs hydration.FormErrors
		if !errors.As(err, &formErrs) {
			return err
		}
		if opts.asJSON {
			if err := writeJSON(out, tools.ValidateIntake(opts.form)); err != nil {
				return err
			}
			return errInvalidForm
		}
		printFieldErrors(out, formErrs)
		return errInvalidForm
	}

	if opts.asJSON {
		return writeJSON(out, result)
	}
	fmt.Fprintln(out, result.Message)
	fmt.Fprintf(out, "About %d glasses of 250 mL\n", result.Glasses)
	if result.Result.Clamped {
		fmt.Fprintf(out, "Limited to the %.1f-%.1f liter range\n", hydration.MinLiters, hydration.MaxLiters)
	}
	return nil
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check form values without calculating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), opts)
		},
	}
	addFormFlags(cmd, opts)
	return cmd
}

func runValidate(out io.Writer, opts *cliOptions) error {
	v := tools.ValidateIntake(opts.form)
	if opts.asJSON {
		if err := writeJSON(out, v); err != nil {
			return err
		}
	} else if v.Valid {
		fmt.Fprintln(out, "Form is valid.")
	} else {
		printFieldErrors(out, v.Errors)
	}
	if !v.Valid {
		return errInvalidForm
	}
	return nil
}

func newOptionsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List activity levels, climates and their multipliers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			options := tools.ListIntakeOptions()
			if opts.asJSON {
				return writeJSON(out, options)
			}
			fmt.Fprintln(out, "Activity levels:")
			for _, o := range options.Activities {
				fmt.Fprintf(out, "  %-10s x%.1f\n", o.Value, o.Multiplier)
			}
			fmt.Fprintln(out, "Climates:")
			for _, o := range options.Climates {
				fmt.Fprintf(out, "  %-10s x%.1f\n", o.Value, o.Multiplier)
			}
			return nil
		},
	}
}

func printFieldErrors(out io.Writer, errs []hydration.FieldError) {
	for _, e := range errs {
		fmt.Fprintf(out, "%s: %s\n", e.Field, e.Message)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInvalidForm):
		return 2
	default:
		return 1
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err != nil && !errors.Is(err, errInvalidForm) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}
