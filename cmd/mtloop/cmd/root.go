// Package cmd provides the command-line interface of mtloop.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mtloop",
	Short: "mtloop runs cooperative time-slot loops.",
	Long: `mtloop runs cooperative time-slot loops. A loop is a set of ` +
		`chains that take turns; each chain runs the task of its current ` +
		`slot once the slot has opened and moves on after the slot's ` +
		`duration and padding.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
