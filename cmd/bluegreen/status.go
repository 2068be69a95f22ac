package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/bluegreen/internal/cli"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored rotation state",
	Long: `Prints which slot holds the current version and which holds the previous one.
Nothing is written. Formats: text, markdown, json, mermaid. On a terminal the
default is markdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		tty := isTerminal(os.Stdout)
		if format == "" {
			format = cli.FormatText
			if tty {
				format = cli.FormatMarkdown
			}
		}

		return cli.RunStatus(cmd.Context(), cfg, cli.StatusOptions{
			Format: format,
			Color:  tty,
			Out:    cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringP("format", "f", "", "Output format: text, markdown, json or mermaid")
}
