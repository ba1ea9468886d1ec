package main

import (
	"fmt"

	"github.com/compute-blade-community/ws281x-dma/pkg/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdVersion)
}

var cmdVersion = &cobra.Command{
	Use:     "version",
	Short:   "Print the version of ws281xctl",
	Example: "ws281xctl version",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Println(util.PrintKeyValues([]util.KeyValuePair{
			{Key: "Version", Value: []any{valueOr(Version, "dev")}},
			{Key: "Commit", Value: []any{valueOr(Commit, "unknown")}},
			{Key: "Date", Value: []any{valueOr(Date, "unknown")}},
		}))
		return nil
	},
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
