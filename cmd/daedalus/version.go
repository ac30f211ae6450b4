package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"date":    date,
			}
			if a.v.GetString("version-output") != "json" {
				fmt.Fprintf(cmd.OutOrStdout(), "daedalus %s (commit %s, built %s)\n", version, commit, date)
				return nil
			}
			var data []byte
			var err error
			if !color.NoColor && isTerminal(cmd.OutOrStdout()) {
				data, err = prettyjson.Marshal(info)
			} else {
				data, err = json.MarshalIndent(info, "", "  ")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output format: json or text")
	a.v.BindPFlag("version-output", cmd.Flags().Lookup("output"))
	return cmd
}
