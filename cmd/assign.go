package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dispatchboard/core/dispatch"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/slot"
)

var (
	assignAnchor  string
	assignWaitAck time.Duration
)

var assignCmd = &cobra.Command{
	Use:   "assign <workOrderId> <slotKey>",
	Short: "Drop one work order on a slot, e.g. assign W2 T1-2024-06-03",
	Args:  cobra.ExactArgs(2),
	RunE:  runAssign,
}

func init() {
	assignCmd.Flags().StringVar(&assignAnchor, "anchor", "", "week to load before the drop (YYYY-MM-DD), default the slot's date")
	assignCmd.Flags().DurationVar(&assignWaitAck, "wait-ack", 0, "wait this long for the technician to acknowledge over MQTT (needs mqtt.enabled)")
	rootCmd.AddCommand(assignCmd)
}

func runAssign(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	workOrderID, target := args[0], args[1]
	anchor, err := parseAnchor(assignAnchor)
	if err != nil {
		return err
	}
	if anchor.IsZero() {
		if k, err := slot.Decode(target); err == nil {
			anchor = k.Date
		}
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := svc.Start(ctx, anchor); err != nil {
		return err
	}
	var res dispatch.Result
	if assignWaitAck > 0 {
		res, err = svc.AssignAndWait(ctx, workOrderID, target, assignWaitAck)
	} else {
		res, err = svc.Assign(ctx, workOrderID, target)
	}
	if err != nil && res.Outcome == "" {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", res.WorkOrderID, res.Outcome)
	if res.Requested() {
		fmt.Fprintf(out, "  from %s to %s\n", res.From, res.To)
	}
	if res.RefreshErr != nil {
		fmt.Fprintf(out, "  refresh failed: %v\n", res.RefreshErr)
	}
	if res.Err != nil {
		return res.Err
	}
	if err != nil {
		fmt.Fprintf(out, "  %v\n", err)
		return err
	}
	if assignWaitAck > 0 && res.Outcome == coremetrics.OutcomeAssigned {
		fmt.Fprintln(out, "  acknowledged")
	}
	return nil
}
