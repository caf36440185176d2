package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the board API, periodic refresh, metrics and technician notifications",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
