package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8080"

type commandContext struct {
	apiURL *string
}

func (c *commandContext) client() *apiClient {
	base := strings.TrimSpace(*c.apiURL)
	if base == "" {
		base = defaultAPIURL
	}
	return newAPIClient(base)
}

func newRootCommand() *cobra.Command {
	var apiFlag string
	ctx := &commandContext{apiURL: &apiFlag}

	rootCmd := &cobra.Command{
		Use:           "clipctl",
		Short:         "clipforge command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	def := os.Getenv("CLIPFORGE_API_URL")
	if def == "" {
		def = defaultAPIURL
	}
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", def, "Base URL of the clipforge API")

	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newCaptionsCommand())

	return rootCmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
