package main

import (
	"fmt"
	"strconv"

	"github.com/dalemusser/therapytrack/internal/app/system/milestones"
	"github.com/dalemusser/therapytrack/internal/app/system/sessionnum"
	"github.com/spf13/cobra"
)

func newMilestonesCmd() *cobra.Command {
	var total int

	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Print the middle and final milestone ordinals for a session count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if total < 1 {
				return fmt.Errorf("--total must be at least 1")
			}
			ms := milestones.For(total)
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "middle: %d\nfinal: %d\n", ms.Middle, ms.Final)
			return err
		},
	}
	cmd.Flags().IntVar(&total, "total", 0, "Total number of sessions in the folder")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <session_number>",
		Short: "Print the ordinal encoded in a session number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := sessionnum.Decode(args[0])
			if n == 0 {
				return fmt.Errorf("no ordinal found in %q", args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strconv.Itoa(n))
			return err
		},
	}
}
