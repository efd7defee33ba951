package cmd

import (
	"fmt"
	"io"
	"strings"

	"course-importer/core/adapter"
	"course-importer/feature/courses/adapters"

	"github.com/spf13/cobra"
)

// adaptersCmd lists the built-in document adapters.
var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List the available document adapters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printAdapters(cmd.OutOrStdout(), adapters.NewRegistry().List(), adapters.DefaultID)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(adaptersCmd)
}

func printAdapters(w io.Writer, infos []adapter.Info, defaultID string) {
	for _, info := range infos {
		line := fmt.Sprintf("%-10s %s", info.ID, strings.Join(info.SupportedFormats, ", "))
		if info.ID == defaultID {
			line += " (default)"
		}
		fmt.Fprintln(w, line)
	}
}
