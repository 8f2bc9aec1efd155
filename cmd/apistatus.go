package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
)

var apiStatusCmd = &cobra.Command{
	Use:   "apistatus",
	Short: "Show which API credentials are configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := cfg.Credentials()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, errlog.CheckAPIStatus(creds))

		env := errlog.Environment(creds)
		names := make([]string, 0, len(env))
		for name := range env {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-12s %s\n", name, env[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apiStatusCmd)
}
