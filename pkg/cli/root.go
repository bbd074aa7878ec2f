// Package cli wires configuration, the oracle, the OS bindings and the
// front-ends together behind the deskpilot command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	systemPath string
)

var rootCmd = &cobra.Command{
	Use:   "deskpilot",
	Short: "Control your desktop with plain-language commands",
	Long: `deskpilot turns sentences like "increase the brightness a bit" or
"what's the time?" into one of a fixed set of desktop actions: brightness,
volume, screenshots, battery, date/time and launching applications.

A language model picks the action; deskpilot validates it and runs it.
Without a subcommand the console front-end starts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "application config (llm, apps, channels)")
	rootCmd.PersistentFlags().StringVar(&systemPath, "system", "system.json", "engine config (timeouts, retries, logging)")

	rootCmd.AddCommand(consoleCmd, chatCmd, serveCmd, runCmd, verbsCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
