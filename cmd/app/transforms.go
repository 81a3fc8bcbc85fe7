package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"matview/internal/algorithms"
)

func newTransformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transforms",
		Short: "List the transforms usable with export",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			byCategory := algorithms.GetTransformsByCategory()
			for _, category := range algorithms.Categories() {
				fmt.Fprintf(out, "%s:\n", category)
				for _, name := range byCategory[category] {
					t, ok := algorithms.Get(name)
					if !ok {
						continue
					}
					fmt.Fprintf(out, "  %s - %s\n", name, t.Description())
					for _, p := range t.Parameters() {
						line := fmt.Sprintf("      %s (%s, %v..%v, default %v)", p.Name, p.Type, p.Min, p.Max, p.Default)
						if len(p.Options) > 0 {
							line += ": " + strings.Join(p.Options, "|")
						}
						fmt.Fprintln(out, line)
					}
				}
			}
		},
	}
}
