// Package main implements schedulectl, an operator tool for previewing
// recurring schedules and repairing folders left behind by failed creations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "schedulectl",
		Short:         "Preview and maintain recurring therapy schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newPreviewCmd())
	root.AddCommand(newMilestonesCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newReconcileCmd())
	return root
}
