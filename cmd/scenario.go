package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/infra/logger"
	"github.com/kilianp07/dispatchboard/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file.yaml>...",
	Short: "Replay YAML dispatch scenarios against the in-memory backend",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenario,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	log := logger.New("scenario")
	out := cmd.OutOrStdout()
	var errs []error
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		rep, err := scenarios.Run(ctx, sc, log)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		status := "PASS"
		if err := rep.Err(); err != nil {
			status = "FAIL"
			errs = append(errs, err)
		}
		fmt.Fprintf(out, "%s  %s  (%d steps, %d backend calls)\n", status, sc.Name, len(rep.Outcomes), rep.Calls)
		for _, m := range rep.Mismatches {
			fmt.Fprintf(out, "    %s\n", m)
		}
	}
	return errors.Join(errs...)
}
