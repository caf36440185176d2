package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/pkg/export"
)

var (
	boardAnchor string
	boardFormat string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print the week grid containing --anchor",
	RunE:  runBoard,
}

func init() {
	boardCmd.Flags().StringVar(&boardAnchor, "anchor", "", "any date of the week to print (YYYY-MM-DD), default today")
	boardCmd.Flags().StringVar(&boardFormat, "format", "table", "output format: table, csv or json")
	rootCmd.AddCommand(boardCmd)
}

func parseAnchor(s string) (model.Date, error) {
	if s == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid --anchor: %w", err)
	}
	return d, nil
}

func runBoard(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	anchor, err := parseAnchor(boardAnchor)
	if err != nil {
		return err
	}
	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := svc.Start(ctx, anchor); err != nil {
		return err
	}
	if anchor.IsZero() {
		anchor = svc.Board.Range().From
	}
	g, err := svc.Board.Week(anchor)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), boardFormat, g)
}
