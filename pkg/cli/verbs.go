package cli

import (
	"deskpilot/pkg/command"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var showPrompt bool

var verbsCmd = &cobra.Command{
	Use:   "verbs",
	Short: "List the supported commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := command.Default()
		out := cmd.OutOrStdout()

		if showPrompt {
			fmt.Fprint(out, g.Prompt())
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TOKEN\tARGUMENT\tEXAMPLE")
		for _, e := range g.Entries() {
			example := ""
			if len(e.Examples) > 0 {
				example = e.Examples[0].Phrase
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Token, arityLabel(e.Arity), example)
		}
		return tw.Flush()
	},
}

func init() {
	verbsCmd.Flags().BoolVar(&showPrompt, "prompt", false, "print the instruction text sent to the language model")
}

func arityLabel(a command.Arity) string {
	switch a {
	case command.ArityOptionalInt:
		return fmt.Sprintf("[number, default %d]", command.DefaultDelta)
	case command.ArityRequiredString:
		return "<app name>"
	default:
		return "-"
	}
}
