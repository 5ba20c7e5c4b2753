package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gjeldshjelp/debt-cli/internal/schema"
)

var validateIDCmd = &cobra.Command{
	Use:   "validate-id <fødselsnummer>",
	Short: "Check that a national identity number is well-formed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := schema.ValidateNationalID(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
	// Only checksum work, so a broken config file must not get in the way.
	Annotations: map[string]string{noConfig: ""},
}

func init() {
	rootCmd.AddCommand(validateIDCmd)
}
